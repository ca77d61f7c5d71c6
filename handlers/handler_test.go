package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"tripweaver/auth"
	"tripweaver/database"
	"tripweaver/itinerary"
	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

// ─── Fakes ────────────────────────────────────────────────────────────────────

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) GeneratePlan(ctx context.Context, token string, trip services.TripRequest) (string, error) {
	args := m.Called(ctx, token, trip)
	return args.String(0), args.Error(1)
}

func (m *mockPlanner) RefreshSpot(ctx context.Context, token string, kind itinerary.SlotKind, destination string, interests []string) (itinerary.Spot, error) {
	args := m.Called(ctx, token, kind, destination, interests)
	return args.Get(0).(itinerary.Spot), args.Error(1)
}

func (m *mockPlanner) RecommendSpots(ctx context.Context, token string, currentID int64, kind itinerary.SlotKind, destination string, interests []string) ([]itinerary.Spot, error) {
	args := m.Called(ctx, token, currentID, kind, destination, interests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itinerary.Spot), args.Error(1)
}

func (m *mockPlanner) SearchSpots(ctx context.Context, q services.SpotQuery) ([]itinerary.Spot, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itinerary.Spot), args.Error(1)
}

type fakeHotels struct {
	hotels []services.Hotel
	live   bool
	err    error

	offers    []services.RoomOffer
	offersErr error
	offersFor string
}

func (f *fakeHotels) SearchHotels(ctx context.Context, q services.HotelQuery) ([]services.Hotel, bool, error) {
	return f.hotels, f.live, f.err
}

func (f *fakeHotels) HotelOffers(ctx context.Context, hotelID string, q services.OfferQuery) ([]services.RoomOffer, bool, error) {
	f.offersFor = hotelID
	return f.offers, f.live, f.offersErr
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepo) SaveInquiry(ctx context.Context, in *database.Inquiry) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockRepo) ListInquiries(ctx context.Context, userID string) ([]database.Inquiry, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]database.Inquiry), args.Error(1)
}

func (m *mockRepo) SaveBooking(ctx context.Context, b *database.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) ListBookings(ctx context.Context, userID string) ([]database.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]database.Booking), args.Error(1)
}

func (m *mockRepo) SavePlan(ctx context.Context, userID string, p *itinerary.Plan) (*database.SavedPlan, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.SavedPlan), args.Error(1)
}

func (m *mockRepo) ListPlans(ctx context.Context, userID string) ([]database.SavedPlan, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]database.SavedPlan), args.Error(1)
}

func (m *mockRepo) GetPlan(ctx context.Context, id string) (*database.SavedPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.SavedPlan), args.Error(1)
}

func (m *mockRepo) GetProfile(ctx context.Context, userID string) (*database.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.Profile), args.Error(1)
}

func (m *mockRepo) UpsertProfile(ctx context.Context, p *database.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) DeleteProfile(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// ─── Harness ──────────────────────────────────────────────────────────────────

type harness struct {
	router   *gin.Engine
	sessions *itinerary.Sessions
	planner  *mockPlanner
	hotels   *fakeHotels
	repo     *mockRepo
}

func newHarness(t *testing.T, withRepo bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		sessions: itinerary.NewSessions(time.Hour),
		planner:  &mockPlanner{},
		hotels:   &fakeHotels{},
		repo:     &mockRepo{},
	}
	deps := Dependencies{Sessions: h.sessions, Planner: h.planner, Hotels: h.hotels}
	if withRepo {
		deps.Repo = h.repo
	}
	h.router = NewRouter(NewHandler(deps), RouterConfig{
		Verifier: auth.NewVerifier(testSecret, ""),
		Logger:   zerolog.Nop(),
	})
	return h
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func samplePlan() *itinerary.Plan {
	return &itinerary.Plan{
		Destination: "강원 강릉시",
		TotalDays:   2,
		TotalCost:   350000,
		Interests:   []string{"맛집"},
		DailyPlans: []itinerary.DailyPlan{
			{
				Spots: []itinerary.Spot{
					{ID: 11, Name: "경포해변", Category: "관광지", Time: "10:00~11:00"},
					{ID: 12, Name: "초당순두부", Category: itinerary.CategoryRestaurant, Time: "09:00~09:30"},
				},
				Accommodation: &itinerary.Accommodation{ID: 90, Name: "씨마크호텔", Category: itinerary.CategoryLodging},
			},
			{},
		},
	}
}

// openSession loads samplePlan through the API and returns the session id.
func (h *harness) openSession(t *testing.T) string {
	t.Helper()
	doc, err := json.Marshal(samplePlan())
	require.NoError(t, err)

	w := h.do(t, http.MethodPost, "/api/plans/load", "", LoadRequest{Data: url.QueryEscape(string(doc))})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[PlanResponse](t, w)
	require.NotNil(t, resp.SessionID)
	return *resp.SessionID
}

func intPtr(i int) *int { return &i }

// ─── Plans ────────────────────────────────────────────────────────────────────

func TestLoadPlan_OpensSession(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodGet, "/api/plans/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[PlanResponse](t, w)
	assert.Equal(t, samplePlan(), resp.Plan)
	assert.True(t, resp.Consistent)
}

func TestLoadPlan_UndecodablePayloadIsEmptyState(t *testing.T) {
	h := newHarness(t, false)

	for _, data := range []string{"", "null", "%7Bbroken"} {
		w := h.do(t, http.MethodPost, "/api/plans/load", "", LoadRequest{Data: data})
		require.Equal(t, http.StatusOK, w.Code, data)
		assert.JSONEq(t, `{"session_id":null,"plan":null,"consistent":false}`, w.Body.String())
	}
	assert.Equal(t, 0, h.sessions.Len())
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(t, http.MethodGet, "/api/plans/nope/days/0", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDay_DisplayOrder(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodGet, "/api/plans/"+id+"/days/0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	day := decode[itinerary.DisplayDay](t, w)

	require.Len(t, day.Entries, 3)
	assert.Equal(t, "초당순두부", day.Entries[0].Spot.Name)
	assert.Equal(t, 1, day.Entries[0].StorageIndex)
	assert.Equal(t, "경포해변", day.Entries[1].Spot.Name)
	assert.True(t, day.Entries[2].Accommodation)
}

func TestGetDay_OutOfRangeIsEmpty(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodGet, "/api/plans/"+id+"/days/7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"day":7,"entries":[]}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/plans/"+id+"/days/first", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMarkersAndSummary(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodGet, "/api/plans/"+id+"/days/0/markers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	markers := decode[struct {
		Markers []itinerary.Marker `json:"markers"`
	}](t, w)
	assert.Len(t, markers.Markers, 3)
	assert.Equal(t, itinerary.NoAddressLabel, markers.Markers[0].Address)

	w = h.do(t, http.MethodGet, "/api/plans/"+id+"/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[SummaryResponse](t, w)
	assert.Equal(t, 350000.0, summary.TotalCost)
	require.Len(t, summary.Accommodations, 1)
	require.Len(t, summary.Restaurants, 1)
	assert.Equal(t, "초당순두부", summary.Restaurants[0].Name)
	assert.NotNil(t, summary.Recommendations)
}

func TestCreatePlan(t *testing.T) {
	h := newHarness(t, false)
	tok := token(t, "user-1")
	doc, _ := json.Marshal(samplePlan())

	h.planner.On("GeneratePlan", mock.Anything, tok, mock.MatchedBy(func(r services.TripRequest) bool {
		return r.Destination == "강릉" && r.Style == "normal"
	})).Return(string(doc), nil).Once()

	trip := services.TripRequest{Destination: "강릉", StartDate: "2026-05-01", EndDate: "2026-05-02"}

	w := h.do(t, http.MethodPost, "/api/plans", "", trip)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/api/plans", tok, trip)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[PlanResponse](t, w)
	require.NotNil(t, resp.SessionID)
	assert.Equal(t, 1, h.sessions.Len())
	h.planner.AssertExpectations(t)
}

func TestCreatePlan_PlannerFailure(t *testing.T) {
	h := newHarness(t, false)
	tok := token(t, "user-1")
	h.planner.On("GeneratePlan", mock.Anything, tok, mock.Anything).
		Return("", &services.CollaboratorError{Action: "generate plan", Status: 500, Message: "model overloaded"})

	w := h.do(t, http.MethodPost, "/api/plans", tok,
		services.TripRequest{Destination: "강릉", StartDate: "2026-05-01", EndDate: "2026-05-02"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "model overloaded")
}

// ─── Slots ────────────────────────────────────────────────────────────────────

func TestRefreshSlot_RequiresAuth(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/refresh", "", SlotRequest{Day: 0, Kind: "accommodation"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	h.planner.AssertNotCalled(t, "RefreshSpot")
}

func TestRefreshSlot_Accommodation(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	fresh := itinerary.Spot{ID: 91, Name: "스카이베이호텔", Category: itinerary.CategoryLodging}
	h.planner.On("RefreshSpot", mock.Anything, tok, itinerary.KindAccommodation, "강원 강릉시", mock.Anything).
		Return(fresh, nil).Once()

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/refresh", tok, SlotRequest{Day: 0, Kind: "accommodation"})
	require.Equal(t, http.StatusOK, w.Code)

	store, _ := h.sessions.Get(id)
	plan := store.Snapshot()
	assert.Equal(t, "스카이베이호텔", plan.DailyPlans[0].Accommodation.Name)
	assert.Equal(t, samplePlan().DailyPlans[0].Spots, plan.DailyPlans[0].Spots)
	h.planner.AssertExpectations(t)
}

func TestRefreshSlot_FailureLeavesPlan(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	h.planner.On("RefreshSpot", mock.Anything, tok, itinerary.KindRestaurant, mock.Anything, mock.Anything).
		Return(itinerary.Spot{}, errors.New("upstream 500")).Once()

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/refresh", tok,
		SlotRequest{Day: 0, Kind: "spot", SpotIndex: intPtr(1)})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "refresh")

	store, _ := h.sessions.Get(id)
	assert.Equal(t, samplePlan(), store.Snapshot())
}

func TestRefreshSlot_NoEntityIsBadGateway(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	h.planner.On("RefreshSpot", mock.Anything, tok, itinerary.KindAccommodation, mock.Anything, mock.Anything).
		Return(itinerary.Spot{}, nil).Once()

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/refresh", tok, SlotRequest{Day: 0, Kind: "accommodation"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to refresh day 0 accommodation")

	store, _ := h.sessions.Get(id)
	assert.Equal(t, samplePlan(), store.Snapshot())
}

func TestRefreshSlot_BadSlot(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	cases := []SlotRequest{
		{Day: 0, Kind: "spot"},
		{Day: 0, Kind: "spot", SpotIndex: intPtr(5)},
		{Day: 4, Kind: "accommodation"},
		{Day: 0, Kind: "museum", SpotIndex: intPtr(0)},
	}
	for _, c := range cases {
		w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/refresh", tok, c)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%+v", c)
	}
	h.planner.AssertNotCalled(t, "RefreshSpot")
}

func TestProposeAlternatives(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	alts := []itinerary.Spot{{ID: 31, Name: "동화가든"}, {ID: 32, Name: "토담순두부"}}
	h.planner.On("RecommendSpots", mock.Anything, tok, int64(12), itinerary.KindRestaurant, "강원 강릉시", mock.Anything).
		Return(alts, nil).Once()

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/alternatives", tok,
		AlternativesRequest{SlotRequest: SlotRequest{Day: 0, Kind: "restaurant", SpotIndex: intPtr(1)}})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Alternatives []itinerary.Spot `json:"alternatives"`
		Count        int              `json:"count"`
	}](t, w)
	assert.Equal(t, alts, resp.Alternatives)
	assert.Equal(t, 2, resp.Count)

	store, _ := h.sessions.Get(id)
	assert.Equal(t, samplePlan(), store.Snapshot())
	h.planner.AssertExpectations(t)
}

func TestProposeAlternatives_EmptyIsNotAnError(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)
	tok := token(t, "user-1")

	h.planner.On("RecommendSpots", mock.Anything, tok, int64(90), itinerary.KindAccommodation, mock.Anything, mock.Anything).
		Return([]itinerary.Spot{}, nil).Once()

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/alternatives", tok,
		AlternativesRequest{SlotRequest: SlotRequest{Day: 0, Kind: "accommodation"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alternatives":[],"count":0}`, w.Body.String())
}

func TestSelectSlot(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	chosen := itinerary.Spot{ID: 31, Name: "동화가든", Category: itinerary.CategoryRestaurant}
	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/select", "",
		SelectRequest{SlotRequest: SlotRequest{Day: 0, Kind: "spot", SpotIndex: intPtr(1)}, Spot: chosen})
	require.Equal(t, http.StatusOK, w.Code)

	store, _ := h.sessions.Get(id)
	assert.Equal(t, chosen, store.Snapshot().DailyPlans[0].Spots[1])

	w = h.do(t, http.MethodPost, "/api/plans/"+id+"/slots/select", "",
		SelectRequest{SlotRequest: SlotRequest{Day: 0, Kind: "spot", SpotIndex: intPtr(0)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadPlan(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodGet, "/api/plans/"+id+"/pdf", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestClosePlan(t *testing.T) {
	h := newHarness(t, false)
	id := h.openSession(t)

	w := h.do(t, http.MethodDelete, "/api/plans/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, h.sessions.Len())
}

// ─── Hotels ───────────────────────────────────────────────────────────────────

func TestSearchHotels(t *testing.T) {
	h := newHarness(t, false)
	h.hotels.hotels = []services.Hotel{{HotelID: "GNSEAMAR", Name: "씨마크호텔"}}
	h.hotels.live = true

	w := h.do(t, http.MethodGet, "/api/hotels/search?city_code=GNG&check_in=2026-05-01&check_out=2026-05-02", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HotelSearchResponse](t, w)
	assert.Equal(t, "live", resp.Source)
	assert.Len(t, resp.Hotels, 1)

	w = h.do(t, http.MethodGet, "/api/hotels/search?city_code=GNG", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHotels_FallbackOnFailure(t *testing.T) {
	h := newHarness(t, false)
	h.hotels.err = &services.CollaboratorError{Action: "hotel list", Status: 503}

	w := h.do(t, http.MethodGet, "/api/hotels/search?city_code=pus&check_in=2026-05-01&check_out=2026-05-02", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HotelSearchResponse](t, w)
	assert.Equal(t, "estimated", resp.Source)
	assert.NotEmpty(t, resp.Hotels)

	h.hotels.err = services.ErrInvalidHotelQuery
	w = h.do(t, http.MethodGet, "/api/hotels/search?city_code=PUS&check_in=2026-05-02&check_out=2026-05-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHotelOffers(t *testing.T) {
	h := newHarness(t, false)
	h.hotels.live = true
	h.hotels.offers = []services.RoomOffer{{ID: "OFF1", RoomType: "DELUXE_ROOM", Price: 330000, Currency: "KRW"}}

	w := h.do(t, http.MethodGet, "/api/hotels/rtsel001/offers?check_in=2026-05-01&check_out=2026-05-02&adults=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[RoomOffersResponse](t, w)
	assert.Equal(t, "live", resp.Source)
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, "OFF1", resp.Offers[0].ID)
	assert.Equal(t, "RTSEL001", h.hotels.offersFor)

	w = h.do(t, http.MethodGet, "/api/hotels/RTSEL001/offers?check_in=2026-05-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h.hotels.offersErr = services.ErrInvalidHotelQuery
	w = h.do(t, http.MethodGet, "/api/hotels/RTSEL001/offers?check_in=2026-05-02&check_out=2026-05-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHotelOffers_FallbackOnFailure(t *testing.T) {
	h := newHarness(t, false)
	h.hotels.offersErr = &services.CollaboratorError{Action: "room offers", Status: 503}

	w := h.do(t, http.MethodGet, "/api/hotels/RTSEL001/offers?check_in=2026-05-01&check_out=2026-05-03", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[RoomOffersResponse](t, w)
	assert.Equal(t, "estimated", resp.Source)
	require.NotEmpty(t, resp.Offers)
	assert.Equal(t, "RTSEL001-STD", resp.Offers[0].ID)
}

func TestSearchSpots(t *testing.T) {
	h := newHarness(t, false)
	q := services.SpotQuery{Sido: "강원도", Category: "식당"}
	h.planner.On("SearchSpots", mock.Anything, q).
		Return([]itinerary.Spot{{ID: 12, Name: "초당순두부", Category: itinerary.CategoryRestaurant}}, nil).Once()

	w := h.do(t, http.MethodGet, "/api/spots/search?sido="+url.QueryEscape("강원도")+"&category="+url.QueryEscape("식당"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Spots []itinerary.Spot `json:"spots"`
	}](t, w)
	require.Len(t, resp.Spots, 1)
	assert.Equal(t, "초당순두부", resp.Spots[0].Name)
	h.planner.AssertExpectations(t)
}

func TestSearchSpots_NeedsRegionOrKeyword(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(t, http.MethodGet, "/api/spots/search?category="+url.QueryEscape("관광지"), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.planner.AssertNotCalled(t, "SearchSpots", mock.Anything, mock.Anything)
}

func TestSearchSpots_UpstreamFailureIsBadGateway(t *testing.T) {
	h := newHarness(t, false)
	h.planner.On("SearchSpots", mock.Anything, mock.Anything).
		Return(nil, &services.CollaboratorError{Action: "search spots", Status: 500, Message: "tour api down"})

	w := h.do(t, http.MethodGet, "/api/spots/search?keyword=x", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// ─── Records ──────────────────────────────────────────────────────────────────

func TestHealth_WithoutDatabase(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not initialized")

	w = h.do(t, http.MethodPost, "/api/inquiries", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateInquiry(t *testing.T) {
	h := newHarness(t, true)
	h.repo.On("SaveInquiry", mock.Anything, mock.MatchedBy(func(in *database.Inquiry) bool {
		return in.UserID == "" && in.Subject == "환불"
	})).Return(nil).Once()

	w := h.do(t, http.MethodPost, "/api/inquiries", "", database.Inquiry{
		Name: "김철수", Email: "kim@example.com", Subject: "환불", Message: "환불 가능한가요?",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api/inquiries", "", database.Inquiry{Name: "김철수", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.repo.AssertExpectations(t)
}

func TestCreateBooking(t *testing.T) {
	h := newHarness(t, true)
	tok := token(t, "user-1")
	h.repo.On("SaveBooking", mock.Anything, mock.MatchedBy(func(b *database.Booking) bool {
		return b.UserID == "user-1"
	})).Return(nil).Once()

	good := database.Booking{HotelID: "GNSEAMAR", CheckIn: "2026-05-01", CheckOut: "2026-05-03"}
	w := h.do(t, http.MethodPost, "/api/bookings", "", good)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/api/bookings", tok, good)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api/bookings", tok,
		database.Booking{HotelID: "GNSEAMAR", CheckIn: "2026-05-03", CheckOut: "2026-05-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.repo.AssertExpectations(t)
}

func TestSaveAndReopenPlan(t *testing.T) {
	h := newHarness(t, true)
	id := h.openSession(t)
	tok := token(t, "user-1")

	saved := &database.SavedPlan{ID: "plan-1", UserID: "user-1", Destination: "강원 강릉시", Plan: samplePlan()}
	h.repo.On("SavePlan", mock.Anything, "user-1", mock.Anything).Return(saved, nil).Once()
	h.repo.On("GetPlan", mock.Anything, "plan-1").Return(saved, nil)
	h.repo.On("GetPlan", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	w := h.do(t, http.MethodPost, "/api/plans/"+id+"/save", tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api/me/plans/plan-1/open", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, h.sessions.Len())

	w = h.do(t, http.MethodPost, "/api/me/plans/plan-1/open", token(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/me/plans/missing/open", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMine(t *testing.T) {
	h := newHarness(t, true)
	tok := token(t, "user-1")
	h.repo.On("ListBookings", mock.Anything, "user-1").Return([]database.Booking{{ID: "b1"}}, nil)
	h.repo.On("ListInquiries", mock.Anything, "user-1").Return([]database.Inquiry{}, nil)
	h.repo.On("ListPlans", mock.Anything, "user-1").Return([]database.SavedPlan{}, nil)

	w := h.do(t, http.MethodGet, "/api/me/bookings", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"b1"`)

	w = h.do(t, http.MethodGet, "/api/me/inquiries", tok, nil)
	assert.JSONEq(t, `{"inquiries":[]}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/me/plans", tok, nil)
	assert.JSONEq(t, `{"plans":[]}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/me/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile_CreateOnFirstWrite(t *testing.T) {
	h := newHarness(t, true)
	tok := token(t, "user-1")
	h.repo.On("GetProfile", mock.Anything, "user-1").Return(nil, sql.ErrNoRows).Once()
	h.repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p *database.Profile) bool {
		return p.UserID == "user-1" && p.DisplayName == "김철수" &&
			p.Preferences == database.Preferences{Language: "ko", Currency: "USD", Notifications: true}
	})).Return(nil).Once()

	w := h.do(t, http.MethodPut, "/api/me/profile", tok, gin.H{
		"display_name": " 김철수 ",
		"preferences":  gin.H{"currency": "usd"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[database.Profile](t, w)
	assert.Equal(t, "user-1", got.UserID)
	h.repo.AssertExpectations(t)
}

func TestProfile_PartialUpdateKeepsOtherFields(t *testing.T) {
	h := newHarness(t, true)
	tok := token(t, "user-1")
	existing := database.NewProfile("user-1")
	existing.DisplayName, existing.Email = "김철수", "kim@example.com"
	h.repo.On("GetProfile", mock.Anything, "user-1").Return(existing, nil)
	h.repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p *database.Profile) bool {
		return p.DisplayName == "김철수" && p.Email == "kim@example.com" && !p.Preferences.Notifications
	})).Return(nil).Once()

	w := h.do(t, http.MethodPut, "/api/me/profile", tok, gin.H{"preferences": gin.H{"notifications": false}})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kim@example.com", decode[database.Profile](t, w).Email)

	w = h.do(t, http.MethodPut, "/api/me/profile", tok, gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodPut, "/api/me/profile", tok, gin.H{"preferences": gin.H{"language": "fr"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.repo.AssertExpectations(t)
}

func TestProfile_Delete(t *testing.T) {
	h := newHarness(t, true)
	tok := token(t, "user-1")
	h.repo.On("DeleteProfile", mock.Anything, "user-1").Return(nil).Once()
	h.repo.On("DeleteProfile", mock.Anything, "user-1").Return(sql.ErrNoRows).Once()
	h.repo.On("GetProfile", mock.Anything, "user-1").Return(nil, sql.ErrNoRows).Once()

	w := h.do(t, http.MethodDelete, "/api/me/profile", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodDelete, "/api/me/profile", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/me/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	h.repo.AssertExpectations(t)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ─── Types ────────────────────────────────────────────────────────────────────

type Hotel struct {
	HotelID  string  `json:"hotel_id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	CityCode string  `json:"city_code"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
	Rating   float64 `json:"rating"`
}

type HotelQuery struct {
	CityCode string `form:"city_code" binding:"required"`
	CheckIn  string `form:"check_in" binding:"required"`
	CheckOut string `form:"check_out" binding:"required"`
	Adults   int    `form:"adults"`
}

// OfferQuery selects the stay for a single hotel's room offers.
type OfferQuery struct {
	CheckIn  string `form:"check_in" binding:"required"`
	CheckOut string `form:"check_out" binding:"required"`
	Adults   int    `form:"adults"`
}

// RoomOffer is one bookable room of a hotel. ID is what a booking records as
// its room type.
type RoomOffer struct {
	ID           string  `json:"id"`
	RoomType     string  `json:"room_type"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Breakfast    bool    `json:"breakfast"`
	Cancellation string  `json:"cancellation"`
}

// ErrInvalidHotelQuery is returned for malformed or reversed stay dates.
var ErrInvalidHotelQuery = errors.New("invalid hotel query")

type City struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ─── Amadeus Client ───────────────────────────────────────────────────────────

// HotelClient searches bookable hotels through the Amadeus self-service API.
// Without credentials it answers from a fixed catalogue.
type HotelClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	tokenFetch  singleflight.Group
}

func NewHotelClient(clientID, clientSecret, env string) *HotelClient {
	baseURL := "https://api.amadeus.com"
	if env == "" || env == "test" {
		baseURL = "https://test.api.amadeus.com"
	}
	return &HotelClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the client at another host. Used by tests.
func (c *HotelClient) WithBaseURL(u string) *HotelClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

func (c *HotelClient) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// ─── OAuth2 Token ─────────────────────────────────────────────────────────────

// token returns the cached access token, fetching a new one when it has
// expired. Concurrent callers share a single fetch and may give up on their
// own context without cancelling it for the others.
func (c *HotelClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		tok := c.accessToken
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	ch := c.tokenFetch.DoChan("token", func() (any, error) {
		return c.fetchToken(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *HotelClient) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-30) * time.Second)
	c.mu.Unlock()
	return result.AccessToken, nil
}

func (c *HotelClient) get(ctx context.Context, path string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("amadeus error (%d): %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

// SearchHotels lists hotels with an available offer in the city. When the
// client is not configured the fallback catalogue is returned and live is
// false.
func (c *HotelClient) SearchHotels(ctx context.Context, q HotelQuery) (hotels []Hotel, live bool, err error) {
	q.CityCode = strings.ToUpper(strings.TrimSpace(q.CityCode))
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if _, err := parseStay(q.CheckIn, q.CheckOut); err != nil {
		return nil, false, err
	}

	if !c.Configured() {
		return FallbackHotels(q.CityCode), false, nil
	}

	ids, err := c.hotelIDsByCity(ctx, q.CityCode)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("city", q.CityCode).Msg("amadeus hotel list failed")
		return nil, false, &CollaboratorError{Action: "hotel list", Err: err}
	}
	if len(ids) == 0 {
		return []Hotel{}, true, nil
	}
	// Offers search rejects long id lists.
	if len(ids) > 20 {
		ids = ids[:20]
	}

	hotels, err = c.hotelOffers(ctx, ids, q)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("city", q.CityCode).Msg("amadeus hotel offers failed")
		return nil, false, &CollaboratorError{Action: "hotel offers", Err: err}
	}
	return hotels, true, nil
}

type hotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
	} `json:"data"`
}

func (c *HotelClient) hotelIDsByCity(ctx context.Context, cityCode string) ([]string, error) {
	path := fmt.Sprintf("/v1/reference-data/locations/hotels/by-city?cityCode=%s&radius=5&radiusUnit=KM&hotelSource=ALL",
		url.QueryEscape(CityCode(cityCode)))

	var resp hotelListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Data))
	for _, h := range resp.Data {
		ids = append(ids, h.HotelID)
	}
	return ids, nil
}

type hotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID  string `json:"hotelId"`
			Name     string `json:"name"`
			CityCode string `json:"cityCode"`
			Address  struct {
				Lines    []string `json:"lines"`
				CityName string   `json:"cityName"`
			} `json:"address"`
			Rating string `json:"rating"`
		} `json:"hotel"`
		Available bool `json:"available"`
		Offers    []struct {
			ID        string `json:"id"`
			BoardType string `json:"boardType"`
			Room      struct {
				TypeEstimated struct {
					Category string `json:"category"`
				} `json:"typeEstimated"`
				Description struct {
					Text string `json:"text"`
				} `json:"description"`
			} `json:"room"`
			Price struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
			Policies struct {
				Cancellations []struct {
					Deadline string `json:"deadline"`
				} `json:"cancellations"`
			} `json:"policies"`
		} `json:"offers"`
	} `json:"data"`
}

func (c *HotelClient) hotelOffers(ctx context.Context, ids []string, q HotelQuery) ([]Hotel, error) {
	path := fmt.Sprintf("/v3/shopping/hotel-offers?hotelIds=%s&checkInDate=%s&checkOutDate=%s&adults=%d&roomQuantity=1&bestRateOnly=true",
		url.QueryEscape(strings.Join(ids, ",")),
		url.QueryEscape(q.CheckIn),
		url.QueryEscape(q.CheckOut),
		q.Adults,
	)

	var resp hotelOffersResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	hotels := make([]Hotel, 0, len(resp.Data))
	for _, item := range resp.Data {
		if !item.Available || len(item.Offers) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(item.Offers[0].Price.Total, 64)
		if err != nil || price <= 0 {
			continue
		}

		address := strings.Join(item.Hotel.Address.Lines, ", ")
		if address == "" {
			address = item.Hotel.Address.CityName
		}

		hotels = append(hotels, Hotel{
			HotelID:  item.Hotel.HotelID,
			Name:     item.Hotel.Name,
			Address:  address,
			CityCode: item.Hotel.CityCode,
			Price:    price,
			Currency: item.Offers[0].Price.Currency,
			Rating:   parseRating(item.Hotel.Rating),
		})
	}
	return hotels, nil
}

// HotelOffers lists every available room of one hotel for the stay. Fallback
// hotels and unconfigured clients get estimated room tiers with live false.
func (c *HotelClient) HotelOffers(ctx context.Context, hotelID string, q OfferQuery) (offers []RoomOffer, live bool, err error) {
	hotelID = strings.ToUpper(strings.TrimSpace(hotelID))
	if hotelID == "" {
		return nil, false, fmt.Errorf("%w: hotel id is required", ErrInvalidHotelQuery)
	}
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if _, err := parseStay(q.CheckIn, q.CheckOut); err != nil {
		return nil, false, err
	}

	if !c.Configured() || strings.HasPrefix(hotelID, "FB") {
		return FallbackRoomOffers(hotelID, q), false, nil
	}

	path := fmt.Sprintf("/v3/shopping/hotel-offers?hotelIds=%s&checkInDate=%s&checkOutDate=%s&adults=%d&roomQuantity=1",
		url.QueryEscape(hotelID),
		url.QueryEscape(q.CheckIn),
		url.QueryEscape(q.CheckOut),
		q.Adults,
	)

	var resp hotelOffersResponse
	if err := c.get(ctx, path, &resp); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("hotel", hotelID).Msg("amadeus room offers failed")
		return nil, false, &CollaboratorError{Action: "room offers", Err: err}
	}

	offers = []RoomOffer{}
	for _, item := range resp.Data {
		if !item.Available {
			continue
		}
		for _, o := range item.Offers {
			price, err := strconv.ParseFloat(o.Price.Total, 64)
			if err != nil || price <= 0 {
				continue
			}
			roomType := o.Room.TypeEstimated.Category
			if roomType == "" {
				roomType = "STANDARD_ROOM"
			}
			cancellation := "환불 불가"
			if len(o.Policies.Cancellations) > 0 && o.Policies.Cancellations[0].Deadline != "" {
				cancellation = "무료 취소 (" + o.Policies.Cancellations[0].Deadline + "까지)"
			}
			offers = append(offers, RoomOffer{
				ID:           o.ID,
				RoomType:     roomType,
				Description:  o.Room.Description.Text,
				Price:        price,
				Currency:     o.Price.Currency,
				Breakfast:    strings.Contains(o.BoardType, "BREAKFAST"),
				Cancellation: cancellation,
			})
		}
	}
	return offers, true, nil
}

// ─── Cities ───────────────────────────────────────────────────────────────────

var cityNames = map[string]string{
	"SEL": "서울",
	"PUS": "부산",
	"CJU": "제주",
	"TAE": "대구",
	"KWJ": "광주",
	"USN": "울산",
	"YNY": "양양",
	"RSU": "여수",
	"TYO": "도쿄",
	"OSA": "오사카",
}

var airportCities = map[string]string{
	"ICN": "SEL", "GMP": "SEL",
	"KIX": "OSA", "ITM": "OSA",
	"NRT": "TYO", "HND": "TYO",
}

// CityCode maps airport codes onto the city codes the hotel list expects.
func CityCode(code string) string {
	if city, ok := airportCities[code]; ok {
		return city
	}
	return code
}

// Cities lists the destinations offered in the booking search, by code.
func Cities() []City {
	cities := make([]City, 0, len(cityNames))
	for code, name := range cityNames {
		cities = append(cities, City{Code: code, Name: name})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Code < cities[j].Code })
	return cities
}

// ─── Fallback ─────────────────────────────────────────────────────────────────

// FallbackHotels produces plausible hotels for a city without an API key.
func FallbackHotels(cityCode string) []Hotel {
	city := cityNames[CityCode(cityCode)]
	if city == "" {
		city = cityCode
	}

	tiers := []struct {
		name   string
		area   string
		price  float64
		rating float64
	}{
		{"그랜드 호텔", "도심", 180000, 4.6},
		{"비즈니스 인", "역세권", 95000, 4.2},
		{"부티크 레지던스", "문화지구", 120000, 4.4},
		{"이코노미 스테이", "공항 인근", 65000, 3.9},
		{"럭셔리 리조트", "해안", 320000, 4.8},
	}

	hotels := make([]Hotel, 0, len(tiers))
	for i, t := range tiers {
		hotels = append(hotels, Hotel{
			HotelID:  fmt.Sprintf("FB%s%02d", CityCode(cityCode), i+1),
			Name:     city + " " + t.name,
			Address:  city + " " + t.area,
			CityCode: CityCode(cityCode),
			Price:    t.price,
			Currency: "KRW",
			Rating:   t.rating,
		})
	}
	return hotels
}

// FallbackRoomOffers produces estimated room tiers priced for the whole stay.
// Unparseable dates price a single night.
func FallbackRoomOffers(hotelID string, q OfferQuery) []RoomOffer {
	nights, err := parseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		nights = 1
	}
	tiers := []struct {
		code, roomType, desc string
		nightly             float64
		breakfast           bool
	}{
		{"STD", "스탠다드 더블", "더블 침대 1개, 시티뷰", 90000, false},
		{"DLX", "디럭스 트윈", "싱글 침대 2개, 조식 포함", 130000, true},
		{"STE", "스위트", "거실 분리형 객실, 조식 포함", 240000, true},
	}

	offers := make([]RoomOffer, 0, len(tiers))
	for _, t := range tiers {
		offers = append(offers, RoomOffer{
			ID:           hotelID + "-" + t.code,
			RoomType:     t.roomType,
			Description:  t.desc,
			Price:        t.nightly * float64(nights),
			Currency:     "KRW",
			Breakfast:    t.breakfast,
			Cancellation: "체크인 1일 전까지 무료 취소",
		})
	}
	return offers
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func parseRating(s string) float64 {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 {
		return 4.0
	}
	// Amadeus returns star ratings 1-5
	if r > 5 {
		r = 5
	}
	return r
}

// parseStay validates YYYY-MM-DD stay dates and returns the number of nights.
func parseStay(in, out string) (int, error) {
	checkIn, err := time.Parse("2006-01-02", in)
	if err != nil {
		return 0, fmt.Errorf("%w: check-in date must be YYYY-MM-DD", ErrInvalidHotelQuery)
	}
	checkOut, err := time.Parse("2006-01-02", out)
	if err != nil {
		return 0, fmt.Errorf("%w: check-out date must be YYYY-MM-DD", ErrInvalidHotelQuery)
	}
	if !checkOut.After(checkIn) {
		return 0, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidHotelQuery)
	}
	return int(checkOut.Sub(checkIn).Hours() / 24), nil
}

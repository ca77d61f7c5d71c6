package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tripweaver/itinerary"

	"github.com/rs/zerolog"
)

// CollaboratorError is a failed or non-2xx call to an upstream service.
type CollaboratorError struct {
	Action  string
	Status  int
	Message string
	Err     error
}

func (e *CollaboratorError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Action, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Action, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: server error %d", e.Action, e.Status)
	}
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ─── Trip request ────────────────────────────────────────────────────────────

type TripRequest struct {
	Destination string   `json:"destination" binding:"required"`
	Companions  []string `json:"companions"`
	Budget      float64  `json:"budget"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	People      int      `json:"people"`
	Interests   []string `json:"interests"`
	Transport   string   `json:"transport"`
	Style       string   `json:"style"`
}

var planStyles = map[string]bool{"relaxed": true, "normal": true, "tight": true}

// Normalize trims the request, applies defaults and validates it.
func (r *TripRequest) Normalize() error {
	r.Destination = strings.TrimSpace(r.Destination)
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if r.Companions == nil {
		r.Companions = []string{}
	}
	if r.People <= 0 {
		r.People = 1
	}
	if r.Budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	if r.Style == "" {
		r.Style = "normal"
	}
	if !planStyles[r.Style] {
		return fmt.Errorf("unknown plan style %q", r.Style)
	}

	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date format. Use YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date format. Use YYYY-MM-DD")
	}
	if end.Before(start) {
		return fmt.Errorf("end date must not be before start date")
	}
	return nil
}

// ─── Planner Client ──────────────────────────────────────────────────────────

// PlannerClient talks to the itinerary generation service, which also serves
// single-slot refreshes and alternative recommendations.
type PlannerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPlannerClient(baseURL string, timeout time.Duration) *PlannerClient {
	return &PlannerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *PlannerClient) post(ctx context.Context, action, path, token string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zerolog.Ctx(ctx).Warn().
			Str("action", action).
			Int("status", resp.StatusCode).
			Msg("planner service returned an error")
		return nil, &CollaboratorError{Action: action, Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, &CollaboratorError{Action: action, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", decodeErr)}
	}
	return env.Data, nil
}

// GeneratePlan requests a new itinerary and returns the raw plan document for
// itinerary.LoadPlan.
func (c *PlannerClient) GeneratePlan(ctx context.Context, token string, trip TripRequest) (string, error) {
	data, err := c.post(ctx, "generate plan", "/api/travel-plan", token, trip)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type refreshRequest struct {
	SpotType    itinerary.SlotKind `json:"spot_type"`
	Destination string             `json:"destination"`
	Interests   []string           `json:"interests"`
}

// RefreshSpot fetches one replacement entity for the given kind.
func (c *PlannerClient) RefreshSpot(ctx context.Context, token string, kind itinerary.SlotKind, destination string, interests []string) (itinerary.Spot, error) {
	data, err := c.post(ctx, "refresh spot", "/api/refresh-spot", token, refreshRequest{
		SpotType:    kind,
		Destination: destination,
		Interests:   nonNil(interests),
	})
	if err != nil {
		return itinerary.Spot{}, err
	}

	var spot itinerary.Spot
	if err := json.Unmarshal(data, &spot); err != nil {
		return itinerary.Spot{}, &CollaboratorError{Action: "refresh spot", Err: fmt.Errorf("failed to parse spot: %w", err)}
	}
	return spot, nil
}

type recommendRequest struct {
	CurrentSpotID int64              `json:"current_spot_id"`
	SpotType      itinerary.SlotKind `json:"spot_type"`
	Destination   string             `json:"destination"`
	Interests     []string           `json:"interests"`
}

// RecommendSpots fetches alternatives to the entity with currentID. An empty
// list is a valid answer.
func (c *PlannerClient) RecommendSpots(ctx context.Context, token string, currentID int64, kind itinerary.SlotKind, destination string, interests []string) ([]itinerary.Spot, error) {
	data, err := c.post(ctx, "recommend spots", "/api/recommend-spots", token, recommendRequest{
		CurrentSpotID: currentID,
		SpotType:      kind,
		Destination:   destination,
		Interests:     nonNil(interests),
	})
	if err != nil {
		return nil, err
	}

	spots := []itinerary.Spot{}
	if len(data) == 0 || string(data) == "null" {
		return spots, nil
	}
	if err := json.Unmarshal(data, &spots); err != nil {
		return nil, &CollaboratorError{Action: "recommend spots", Err: fmt.Errorf("failed to parse spots: %w", err)}
	}
	return spots, nil
}

// SpotQuery filters a spot search. At least one of Sido or Keyword is needed.
type SpotQuery struct {
	Sido     string `form:"sido"`
	Sigungu  string `form:"sigungu"`
	Category string `form:"category"`
	Keyword  string `form:"keyword"`
}

func (q SpotQuery) values() url.Values {
	v := url.Values{}
	for key, val := range map[string]string{
		"sido":     q.Sido,
		"sigungu":  q.Sigungu,
		"category": q.Category,
		"keyword":  q.Keyword,
	} {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	return v
}

// SearchSpots looks up spots by region, category and keyword. The search
// endpoint answers with a bare {"spots": [...]} object rather than the data
// envelope.
func (c *PlannerClient) SearchSpots(ctx context.Context, q SpotQuery) ([]itinerary.Spot, error) {
	const action = "search spots"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search-spots?"+q.values().Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		_ = json.Unmarshal(body, &env)
		zerolog.Ctx(ctx).Warn().
			Str("action", action).
			Int("status", resp.StatusCode).
			Msg("planner service returned an error")
		return nil, &CollaboratorError{Action: action, Status: resp.StatusCode, Message: env.Message}
	}

	var result struct {
		Spots []itinerary.Spot `json:"spots"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &CollaboratorError{Action: action, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse spots: %w", err)}
	}
	if result.Spots == nil {
		result.Spots = []itinerary.Spot{}
	}
	return result.Spots, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

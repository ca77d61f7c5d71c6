package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Category labels used by the generation service.
const (
	CategoryLodging    = "숙소"
	CategoryRestaurant = "식당"
)

var (
	ErrNoPlan           = errors.New("no plan")
	ErrNoSuchDay        = errors.New("no such day")
	ErrSlotOutOfRange   = errors.New("slot out of range")
	ErrEmptyReplacement = errors.New("empty replacement")
	ErrAuthRequired     = errors.New("authentication required")
)

// ─── Models ──────────────────────────────────────────────────────────────────

type Plan struct {
	Destination     string      `json:"destination"`
	TotalDays       int         `json:"total_days"`
	TotalCost       float64     `json:"total_cost"`
	DailyPlans      []DailyPlan `json:"daily_plans"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Interests       []string    `json:"interests,omitempty"`
}

type DailyPlan struct {
	Spots          []Spot         `json:"spots"`
	Accommodation  *Accommodation `json:"accommodation,omitempty"`
	Transportation string         `json:"transportation,omitempty"`
	Meals          []string       `json:"meals,omitempty"`
}

type Spot struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Address     string  `json:"address"`
	Category    string  `json:"category"`
	Time        string  `json:"time,omitempty"`
	Tel         string  `json:"tel,omitempty"`
	Homepage    string  `json:"homepage,omitempty"`
	Price       float64 `json:"price,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	OpenTime    string  `json:"open_time,omitempty"`
	ClosedDays  string  `json:"closed_days,omitempty"`
	Parking     string  `json:"parking,omitempty"`
	Facilities  string  `json:"facilities,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	CheckIn     string  `json:"check_in,omitempty"`
	CheckOut    string  `json:"check_out,omitempty"`
}

type Accommodation struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Price    float64 `json:"price,omitempty"`
	Time     string  `json:"time,omitempty"`
	Tel      string  `json:"tel,omitempty"`
	Homepage string  `json:"homepage,omitempty"`
	Category string  `json:"category,omitempty"`
	CheckIn  string  `json:"check_in,omitempty"`
	CheckOut string  `json:"check_out,omitempty"`
}

// present reports whether the accommodation carries anything worth showing.
func (a *Accommodation) present() bool {
	return a != nil && (a.Name != "" || a.ID != 0)
}

// AsAccommodation converts a candidate returned for the accommodation slot.
func (s Spot) AsAccommodation() Accommodation {
	return Accommodation{
		ID:       s.ID,
		Name:     s.Name,
		Address:  s.Address,
		Price:    s.Price,
		Time:     s.Time,
		Tel:      s.Tel,
		Homepage: s.Homepage,
		Category: s.Category,
		CheckIn:  s.CheckIn,
		CheckOut: s.CheckOut,
	}
}

// AsSpot is the inverse of Spot.AsAccommodation.
func (a Accommodation) AsSpot() Spot {
	return Spot{
		ID:       a.ID,
		Name:     a.Name,
		Address:  a.Address,
		Price:    a.Price,
		Time:     a.Time,
		Tel:      a.Tel,
		Homepage: a.Homepage,
		Category: a.Category,
		CheckIn:  a.CheckIn,
		CheckOut: a.CheckOut,
	}
}

func (s Spot) isZero() bool {
	return s == Spot{}
}

// ─── Loading ─────────────────────────────────────────────────────────────────

// LoadPlan decodes the payload produced by the generation service. The
// payload may be URL-encoded. Any decode failure, or a payload that carries no
// document at all, yields ErrNoPlan so callers can show an empty state.
func LoadPlan(raw string) (*Plan, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoPlan
	}

	if !strings.HasPrefix(raw, "{") {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPlan, err)
		}
		raw = strings.TrimSpace(decoded)
	}

	var p *Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPlan, err)
	}
	if p == nil {
		return nil, ErrNoPlan
	}

	if p.TotalDays == 0 {
		p.TotalDays = len(p.DailyPlans)
	}
	return p, nil
}

// Consistent reports whether total_days matches the number of daily plans.
func (p *Plan) Consistent() bool {
	return p != nil && p.TotalDays == len(p.DailyPlans)
}

// Day returns the daily plan at index, or ErrNoSuchDay.
func (p *Plan) Day(index int) (DailyPlan, error) {
	if p == nil || index < 0 || index >= len(p.DailyPlans) {
		return DailyPlan{}, fmt.Errorf("%w: %d", ErrNoSuchDay, index)
	}
	return p.DailyPlans[index], nil
}

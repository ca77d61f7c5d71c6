package itinerary

import (
	"sort"
	"strconv"
	"strings"
)

// Labels the viewer shows in place of missing values.
const (
	CheckInOutLabel    = "체크인/체크아웃"
	UnnamedLabel       = "이름 없음"
	NoAddressLabel     = "주소 정보 없음"
	OtherCategoryLabel = "기타"
)

// DisplayEntry is one row of a day projection. Slot always points back at the
// storage position so edits never follow the display order.
type DisplayEntry struct {
	Spot Spot    `json:"spot"`
	Slot SlotRef `json:"-"`

	StorageIndex  int  `json:"storage_index"`
	Accommodation bool `json:"accommodation"`
}

type DisplayDay struct {
	Day            int            `json:"day"`
	Entries        []DisplayEntry `json:"entries"`
	Transportation string         `json:"transportation,omitempty"`
	Meals          []string       `json:"meals,omitempty"`
}

func (d DisplayDay) Empty() bool {
	return len(d.Entries) == 0
}

// ViewDay builds the read-only projection of a day: spots ordered by start
// time with untimed spots last, followed by the accommodation as a
// pseudo-spot. The plan is not modified.
func ViewDay(p *Plan, day int) (DisplayDay, error) {
	dp, err := p.Day(day)
	if err != nil {
		return DisplayDay{}, err
	}

	entries := make([]DisplayEntry, 0, len(dp.Spots)+1)
	for i, s := range dp.Spots {
		entries = append(entries, DisplayEntry{
			Spot:         s,
			Slot:         SpotSlot(day, i),
			StorageIndex: i,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, aok := StartMinutes(entries[i].Spot.Time)
		b, bok := StartMinutes(entries[j].Spot.Time)
		if aok != bok {
			return aok
		}
		return aok && a < b
	})

	if a := dp.Accommodation; a.present() {
		pseudo := Spot{
			ID:       a.ID,
			Name:     a.Name,
			Address:  a.Address,
			Category: CategoryLodging,
			Time:     a.Time,
			Tel:      a.Tel,
			Homepage: a.Homepage,
			Price:    a.Price,
		}
		if pseudo.Time == "" {
			pseudo.Time = CheckInOutLabel
		}
		entries = append(entries, DisplayEntry{
			Spot:          pseudo,
			Slot:          AccommodationSlot(day),
			StorageIndex:  -1,
			Accommodation: true,
		})
	}

	return DisplayDay{
		Day:            day,
		Entries:        entries,
		Transportation: dp.Transportation,
		Meals:          dp.Meals,
	}, nil
}

// StartMinutes parses the start of a "HH:MM~HH:MM" range into its HHMM
// integer form (09:30 → 930). ok is false when no leading digits exist.
func StartMinutes(t string) (int, bool) {
	start, _, _ := strings.Cut(t, "~")
	start = strings.Replace(strings.TrimSpace(start), ":", "", 1)

	end := 0
	for end < len(start) && start[end] >= '0' && start[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(start[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Marker is the input the map renderer consumes for one pin.
type Marker struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Category string  `json:"category"`
	Time     string  `json:"time,omitempty"`
	Tel      string  `json:"tel,omitempty"`
	Homepage string  `json:"homepage,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// MapMarkers flattens the day projection for the map collaborator.
func MapMarkers(p *Plan, day int) ([]Marker, error) {
	view, err := ViewDay(p, day)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(view.Entries))
	for _, e := range view.Entries {
		s := e.Spot
		markers = append(markers, Marker{
			ID:       s.ID,
			Name:     orDefault(s.Name, UnnamedLabel),
			Address:  orDefault(s.Address, NoAddressLabel),
			Category: orDefault(s.Category, OtherCategoryLabel),
			Time:     s.Time,
			Tel:      s.Tel,
			Homepage: s.Homepage,
			Price:    s.Price,
		})
	}
	return markers, nil
}

// Accommodations lists the distinct lodging entries across all days.
func Accommodations(p *Plan) []Accommodation {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Accommodation
	for _, d := range p.DailyPlans {
		a := d.Accommodation
		if a == nil || a.Name == "" || a.Category != CategoryLodging || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, *a)
	}
	return out
}

// Restaurants lists the distinct restaurant spots across all days.
func Restaurants(p *Plan) []Spot {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Spot
	for _, d := range p.DailyPlans {
		for _, s := range d.Spots {
			if s.Category != CategoryRestaurant || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

package itinerary

import "fmt"

// SlotKind is the recommendation type sent to the planner service.
type SlotKind string

const (
	KindAccommodation SlotKind = "accommodation"
	KindRestaurant    SlotKind = "restaurant"
	KindAttraction    SlotKind = "attraction"
)

// ParseSlotKind accepts the wire names of the three kinds.
func ParseSlotKind(s string) (SlotKind, error) {
	switch k := SlotKind(s); k {
	case KindAccommodation, KindRestaurant, KindAttraction:
		return k, nil
	}
	return "", fmt.Errorf("unknown slot kind %q", s)
}

// SpotKind picks the kind to request for a spot based on its category.
func SpotKind(s Spot) SlotKind {
	if s.Category == CategoryRestaurant {
		return KindRestaurant
	}
	return KindAttraction
}

// SlotRef addresses one replaceable position in a plan: either the
// accommodation of a day or the spot at a storage index of a day.
type SlotRef struct {
	day   int
	spot  int
	accom bool
}

func AccommodationSlot(day int) SlotRef {
	return SlotRef{day: day, accom: true}
}

// SpotSlot addresses spots[index] in storage order, not display order.
func SpotSlot(day, index int) SlotRef {
	return SlotRef{day: day, spot: index}
}

func (r SlotRef) Day() int { return r.day }

func (r SlotRef) IsAccommodation() bool { return r.accom }

// SpotIndex returns the storage index; ok is false for the accommodation slot.
func (r SlotRef) SpotIndex() (int, bool) {
	if r.accom {
		return 0, false
	}
	return r.spot, true
}

func (r SlotRef) String() string {
	if r.accom {
		return fmt.Sprintf("day %d accommodation", r.day)
	}
	return fmt.Sprintf("day %d spot %d", r.day, r.spot)
}

// Kind resolves the upstream recommendation kind for the slot in p.
func (r SlotRef) Kind(p *Plan) (SlotKind, error) {
	if err := r.validate(p); err != nil {
		return "", err
	}
	if r.accom {
		return KindAccommodation, nil
	}
	return SpotKind(p.DailyPlans[r.day].Spots[r.spot]), nil
}

// CurrentID returns the id of the entity occupying the slot, 0 when empty.
func (r SlotRef) CurrentID(p *Plan) (int64, error) {
	if err := r.validate(p); err != nil {
		return 0, err
	}
	if r.accom {
		if a := p.DailyPlans[r.day].Accommodation; a != nil {
			return a.ID, nil
		}
		return 0, nil
	}
	return p.DailyPlans[r.day].Spots[r.spot].ID, nil
}

func (r SlotRef) validate(p *Plan) error {
	if _, err := p.Day(r.day); err != nil {
		return err
	}
	if r.accom {
		return nil
	}
	if r.spot < 0 || r.spot >= len(p.DailyPlans[r.day].Spots) {
		return fmt.Errorf("%w: %s", ErrSlotOutOfRange, r)
	}
	return nil
}

package itinerary

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Select returns a copy of p with only the addressed slot replaced by chosen.
// The root, the daily plan slice and the touched day's spot slice are copied;
// every other day and spot is shared with p. p itself is never written.
func Select(p *Plan, ref SlotRef, chosen Spot) (*Plan, error) {
	if err := ref.validate(p); err != nil {
		return nil, err
	}
	if chosen.isZero() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyReplacement, ref)
	}

	next := *p
	next.DailyPlans = make([]DailyPlan, len(p.DailyPlans))
	copy(next.DailyPlans, p.DailyPlans)

	day := next.DailyPlans[ref.day]
	if ref.accom {
		a := chosen.AsAccommodation()
		day.Accommodation = &a
	} else {
		spots := make([]Spot, len(day.Spots))
		copy(spots, day.Spots)
		spots[ref.spot] = chosen
		day.Spots = spots
	}
	next.DailyPlans[ref.day] = day

	return &next, nil
}

// Refresher fetches one replacement entity for a slot kind.
type Refresher interface {
	RefreshSpot(ctx context.Context, token string, kind SlotKind, destination string, interests []string) (Spot, error)
}

// Recommender fetches alternatives for the entity currently in a slot.
type Recommender interface {
	RecommendSpots(ctx context.Context, token string, currentID int64, kind SlotKind, destination string, interests []string) ([]Spot, error)
}

// CollaboratorError reports a failed call to an external service. The plan is
// unchanged whenever one is returned.
type CollaboratorError struct {
	Action string
	Slot   SlotRef
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Action, e.Slot, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Store holds the current snapshot of one plan. Snapshots are immutable;
// every edit swaps in a new one built by Select.
type Store struct {
	mu   sync.RWMutex
	plan *Plan
}

func NewStore(p *Plan) *Store {
	return &Store{plan: p}
}

// Snapshot returns the current plan. Callers must not modify it.
func (s *Store) Snapshot() *Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// SelectAlternative replaces the addressed slot with an already fetched entity.
func (s *Store) SelectAlternative(ref SlotRef, chosen Spot) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Select(s.plan, ref, chosen)
	if err != nil {
		return nil, err
	}
	s.plan = next
	return next, nil
}

// Refresh asks the refresher for a new entity and writes it into the slot.
// The write is applied to whatever snapshot is current when the response
// arrives, so concurrent refreshes of different slots both land.
func (s *Store) Refresh(ctx context.Context, token string, ref SlotRef, r Refresher) (*Plan, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}

	snap := s.Snapshot()
	kind, err := ref.Kind(snap)
	if err != nil {
		return nil, err
	}

	replacement, err := r.RefreshSpot(ctx, token, kind, snap.Destination, snap.Interests)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("slot", ref.String()).Msg("slot refresh failed")
		return nil, &CollaboratorError{Action: "refresh", Slot: ref, Err: err}
	}
	if replacement.isZero() {
		zerolog.Ctx(ctx).Warn().Str("slot", ref.String()).Msg("slot refresh returned no entity")
		return nil, &CollaboratorError{Action: "refresh", Slot: ref, Err: ErrEmptyReplacement}
	}

	next, err := s.SelectAlternative(ref, replacement)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("slot", ref.String()).Int64("id", replacement.ID).Msg("slot refreshed")
	return next, nil
}

// ProposeAlternatives fetches candidates for the slot without touching the plan.
func (s *Store) ProposeAlternatives(ctx context.Context, token string, ref SlotRef, currentID int64, r Recommender) (*Candidates, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}

	snap := s.Snapshot()
	kind, err := ref.Kind(snap)
	if err != nil {
		return nil, err
	}

	spots, err := r.RecommendSpots(ctx, token, currentID, kind, snap.Destination, snap.Interests)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("slot", ref.String()).Msg("recommendation failed")
		return nil, &CollaboratorError{Action: "recommend", Slot: ref, Err: err}
	}
	return newCandidates(spots), nil
}

// Candidates is a single-pass cursor over proposed alternatives.
type Candidates struct {
	items []Spot
	pos   int
}

func newCandidates(items []Spot) *Candidates {
	return &Candidates{items: items}
}

// Next yields the following candidate; ok is false once exhausted.
func (c *Candidates) Next() (Spot, bool) {
	if c.pos >= len(c.items) {
		return Spot{}, false
	}
	s := c.items[c.pos]
	c.pos++
	return s, true
}

// Len is the total number of candidates, consumed or not.
func (c *Candidates) Len() int {
	return len(c.items)
}

func (c *Candidates) Empty() bool {
	return len(c.items) == 0
}

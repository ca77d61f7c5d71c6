package handlers

import (
	"errors"
	"net/http"

	"tripweaver/auth"
	"tripweaver/itinerary"

	"github.com/gin-gonic/gin"
)

// SlotRequest addresses a slot. Kind "accommodation" selects the day's
// accommodation; any other kind needs spot_index, the storage index reported
// by the day view.
type SlotRequest struct {
	Day       int    `json:"day"`
	Kind      string `json:"kind" binding:"required"`
	SpotIndex *int   `json:"spot_index"`
}

func (r SlotRequest) ref() (itinerary.SlotRef, error) {
	if r.Kind == string(itinerary.KindAccommodation) {
		return itinerary.AccommodationSlot(r.Day), nil
	}
	if r.Kind != "spot" {
		if _, err := itinerary.ParseSlotKind(r.Kind); err != nil {
			return itinerary.SlotRef{}, err
		}
	}
	if r.SpotIndex == nil {
		return itinerary.SlotRef{}, errors.New("spot_index is required for spot slots")
	}
	return itinerary.SpotSlot(r.Day, *r.SpotIndex), nil
}

type AlternativesRequest struct {
	SlotRequest
	CurrentID *int64 `json:"current_id"`
}

type SelectRequest struct {
	SlotRequest
	Spot itinerary.Spot `json:"spot"`
}

func bindSlot(c *gin.Context, req any, slot *SlotRequest) (itinerary.SlotRef, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return itinerary.SlotRef{}, false
	}
	ref, err := slot.ref()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return itinerary.SlotRef{}, false
	}
	return ref, true
}

// RefreshSlot replaces the slot with a freshly recommended entity.
func (h *Handler) RefreshSlot(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	var req SlotRequest
	ref, ok := bindSlot(c, &req, &req)
	if !ok {
		return
	}

	plan, err := store.Refresh(c.Request.Context(), auth.CurrentToken(c), ref, h.planner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// ProposeAlternatives lists candidates for the slot without changing the plan.
func (h *Handler) ProposeAlternatives(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	var req AlternativesRequest
	ref, ok := bindSlot(c, &req, &req.SlotRequest)
	if !ok {
		return
	}

	var currentID int64
	if req.CurrentID != nil {
		currentID = *req.CurrentID
	} else {
		id, err := ref.CurrentID(store.Snapshot())
		if err != nil {
			respondError(c, err)
			return
		}
		currentID = id
	}

	cands, err := store.ProposeAlternatives(c.Request.Context(), auth.CurrentToken(c), ref, currentID, h.planner)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]itinerary.Spot, 0, cands.Len())
	for s, ok := cands.Next(); ok; s, ok = cands.Next() {
		out = append(out, s)
	}
	c.JSON(http.StatusOK, gin.H{"alternatives": out, "count": len(out)})
}

// SelectSlot writes a candidate the user picked into the slot.
func (h *Handler) SelectSlot(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectRequest
	ref, ok := bindSlot(c, &req, &req.SlotRequest)
	if !ok {
		return
	}

	plan, err := store.SelectAlternative(ref, req.Spot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

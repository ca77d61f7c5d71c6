package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tripweaver/auth"
	"tripweaver/itinerary"
	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type PlanResponse struct {
	SessionID  *string         `json:"session_id"`
	Plan       *itinerary.Plan `json:"plan"`
	Consistent bool            `json:"consistent"`
}

type LoadRequest struct {
	Data string `json:"data"`
}

// open starts a viewing session for a decoded payload. Undecodable payloads
// produce the empty state rather than an error.
func (h *Handler) open(c *gin.Context, raw string) {
	logger := zerolog.Ctx(c.Request.Context())

	plan, err := itinerary.LoadPlan(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("plan payload could not be decoded")
		c.JSON(http.StatusOK, PlanResponse{})
		return
	}
	if !plan.Consistent() {
		logger.Warn().
			Int("total_days", plan.TotalDays).
			Int("daily_plans", len(plan.DailyPlans)).
			Msg("plan day count mismatch")
	}

	id := h.sessions.Open(plan)
	logger.Info().Str("session", id).Str("destination", plan.Destination).Msg("plan session opened")
	c.JSON(http.StatusOK, PlanResponse{SessionID: &id, Plan: plan, Consistent: plan.Consistent()})
}

// CreatePlan asks the planner for a new itinerary and opens a session on it.
func (h *Handler) CreatePlan(c *gin.Context) {
	var req services.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := req.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := h.planner.GeneratePlan(c.Request.Context(), auth.CurrentToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.open(c, raw)
}

// LoadPlan opens a session from a payload handed over by the plan page.
func (h *Handler) LoadPlan(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.open(c, req.Data)
}

func (h *Handler) GetPlan(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	plan := store.Snapshot()
	c.JSON(http.StatusOK, PlanResponse{SessionID: &id, Plan: plan, Consistent: plan.Consistent()})
}

func (h *Handler) ClosePlan(c *gin.Context) {
	h.sessions.Close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func dayParam(c *gin.Context) (int, bool) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Day must be an integer"})
		return 0, false
	}
	return day, true
}

// GetDay returns the display projection of one day. A day outside the plan
// is shown as an empty day.
func (h *Handler) GetDay(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	day, ok := dayParam(c)
	if !ok {
		return
	}

	view, err := itinerary.ViewDay(store.Snapshot(), day)
	if errors.Is(err, itinerary.ErrNoSuchDay) {
		c.JSON(http.StatusOK, itinerary.DisplayDay{Day: day, Entries: []itinerary.DisplayEntry{}})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetMarkers(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	day, ok := dayParam(c)
	if !ok {
		return
	}

	markers, err := itinerary.MapMarkers(store.Snapshot(), day)
	if errors.Is(err, itinerary.ErrNoSuchDay) {
		markers = []itinerary.Marker{}
	} else if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "markers": markers})
}

type SummaryResponse struct {
	Destination     string                    `json:"destination"`
	TotalDays       int                       `json:"total_days"`
	TotalCost       float64                   `json:"total_cost"`
	Recommendations []string                  `json:"recommendations"`
	Accommodations  []itinerary.Accommodation `json:"accommodations"`
	Restaurants     []itinerary.Spot          `json:"restaurants"`
}

// GetSummary backs the basic info tab.
func (h *Handler) GetSummary(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}
	plan := store.Snapshot()

	resp := SummaryResponse{
		Destination:     plan.Destination,
		TotalDays:       plan.TotalDays,
		TotalCost:       plan.TotalCost,
		Recommendations: plan.Recommendations,
		Accommodations:  itinerary.Accommodations(plan),
		Restaurants:     itinerary.Restaurants(plan),
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	if resp.Accommodations == nil {
		resp.Accommodations = []itinerary.Accommodation{}
	}
	if resp.Restaurants == nil {
		resp.Restaurants = []itinerary.Spot{}
	}
	c.JSON(http.StatusOK, resp)
}

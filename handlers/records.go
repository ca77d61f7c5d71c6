package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"tripweaver/auth"
	"tripweaver/database"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ─── Inquiries ────────────────────────────────────────────────────────────────

// CreateInquiry accepts support inquiries from signed-in and anonymous users.
func (h *Handler) CreateInquiry(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	var in database.Inquiry
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	in.ID, in.Status = "", ""
	if id, ok := auth.CurrentUser(c); ok {
		in.UserID = id.UserID
	}

	if err := h.repo.SaveInquiry(c.Request.Context(), &in); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to save inquiry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save inquiry"})
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (h *Handler) ListInquiries(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)
	out, err := h.repo.ListInquiries(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": out})
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

func (h *Handler) CreateBooking(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	var b database.Booking
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	checkIn, err1 := time.Parse("2006-01-02", b.CheckIn)
	checkOut, err2 := time.Parse("2006-01-02", b.CheckOut)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	if !checkOut.After(checkIn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Check-out must be after check-in"})
		return
	}
	id, _ := auth.CurrentUser(c)
	b.ID, b.UserID = "", id.UserID

	if err := h.repo.SaveBooking(c.Request.Context(), &b); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to save booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save booking"})
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBookings(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)
	out, err := h.repo.ListBookings(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// ─── Saved plans ──────────────────────────────────────────────────────────────

// SavePlan stores the session's current snapshot for the signed-in user.
func (h *Handler) SavePlan(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	store, ok := h.session(c)
	if !ok {
		return
	}
	id, _ := auth.CurrentUser(c)

	saved, err := h.repo.SavePlan(c.Request.Context(), id.UserID, store.Snapshot())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to save plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save plan"})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListPlans(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)
	out, err := h.repo.ListPlans(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// OpenSavedPlan starts a new viewing session on one of the user's saved plans.
func (h *Handler) OpenSavedPlan(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)

	saved, err := h.repo.GetPlan(c.Request.Context(), c.Param("plan_id"))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && saved.UserID != id.UserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Saved plan not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	sessionID := h.sessions.Open(saved.Plan)
	c.JSON(http.StatusOK, PlanResponse{SessionID: &sessionID, Plan: saved.Plan, Consistent: saved.Plan.Consistent()})
}

// ─── Profile ──────────────────────────────────────────────────────────────────

// ProfileUpdate carries the fields to change; absent fields keep their value.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhotoURL    *string `json:"photo_url" binding:"omitempty,url"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=30"`
	Preferences *struct {
		Language      *string `json:"language" binding:"omitempty,oneof=ko en ja zh"`
		Currency      *string `json:"currency" binding:"omitempty,len=3"`
		Notifications *bool   `json:"notifications"`
	} `json:"preferences"`
}

func (u ProfileUpdate) apply(p *database.Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.DisplayName, u.DisplayName)
	set(&p.Email, u.Email)
	set(&p.PhotoURL, u.PhotoURL)
	set(&p.PhoneNumber, u.PhoneNumber)
	if u.Preferences != nil {
		set(&p.Preferences.Language, u.Preferences.Language)
		if u.Preferences.Currency != nil {
			p.Preferences.Currency = strings.ToUpper(strings.TrimSpace(*u.Preferences.Currency))
		}
		if u.Preferences.Notifications != nil {
			p.Preferences.Notifications = *u.Preferences.Notifications
		}
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)
	p, err := h.repo.GetProfile(c.Request.Context(), id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile merges the request into the caller's profile, creating it
// with default preferences on first write.
func (h *Handler) UpdateProfile(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	var u ProfileUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	id, _ := auth.CurrentUser(c)

	p, err := h.repo.GetProfile(ctx, id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		p, err = database.NewProfile(id.UserID), nil
	}
	if err != nil {
		respondError(c, err)
		return
	}
	u.apply(p)

	if err := h.repo.UpsertProfile(ctx, p); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to save profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfile(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}
	id, _ := auth.CurrentUser(c)
	err := h.repo.DeleteProfile(c.Request.Context(), id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"tripweaver/database"
	"tripweaver/itinerary"
	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Planner is the itinerary generation service.
type Planner interface {
	itinerary.Refresher
	itinerary.Recommender
	GeneratePlan(ctx context.Context, token string, trip services.TripRequest) (string, error)
	SearchSpots(ctx context.Context, q services.SpotQuery) ([]itinerary.Spot, error)
}

type HotelSearcher interface {
	SearchHotels(ctx context.Context, q services.HotelQuery) ([]services.Hotel, bool, error)
	HotelOffers(ctx context.Context, hotelID string, q services.OfferQuery) ([]services.RoomOffer, bool, error)
}

// Repository persists inquiries, bookings, saved plans and user profiles.
type Repository interface {
	Ping(ctx context.Context) error
	SaveInquiry(ctx context.Context, in *database.Inquiry) error
	ListInquiries(ctx context.Context, userID string) ([]database.Inquiry, error)
	SaveBooking(ctx context.Context, b *database.Booking) error
	ListBookings(ctx context.Context, userID string) ([]database.Booking, error)
	SavePlan(ctx context.Context, userID string, p *itinerary.Plan) (*database.SavedPlan, error)
	ListPlans(ctx context.Context, userID string) ([]database.SavedPlan, error)
	GetPlan(ctx context.Context, id string) (*database.SavedPlan, error)
	GetProfile(ctx context.Context, userID string) (*database.Profile, error)
	UpsertProfile(ctx context.Context, p *database.Profile) error
	DeleteProfile(ctx context.Context, userID string) error
}

type Dependencies struct {
	Sessions *itinerary.Sessions
	Planner  Planner
	Hotels   HotelSearcher
	// Repo may be nil when the service runs without a database.
	Repo Repository
	PDF  services.PDFOptions
}

type Handler struct {
	sessions *itinerary.Sessions
	planner  Planner
	hotels   HotelSearcher
	repo     Repository
	pdf      services.PDFOptions
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		sessions: deps.Sessions,
		planner:  deps.Planner,
		hotels:   deps.Hotels,
		repo:     deps.Repo,
		pdf:      deps.PDF,
	}
}

// session resolves the :id path parameter, answering 404 itself when the
// session is unknown or expired.
func (h *Handler) session(c *gin.Context) (*itinerary.Store, bool) {
	store, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan session not found"})
		return nil, false
	}
	return store, true
}

func (h *Handler) requireRepo(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database is not available"})
		return false
	}
	return true
}

// respondError maps domain and collaborator errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())

	var (
		slotErr    *itinerary.CollaboratorError
		serviceErr *services.CollaboratorError
	)
	switch {
	case errors.Is(err, itinerary.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.As(err, &slotErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to " + slotErr.Action + " " + slotErr.Slot.String()})
	case errors.As(err, &serviceErr):
		msg := "Failed to " + serviceErr.Action
		if serviceErr.Message != "" {
			msg += ": " + serviceErr.Message
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	case errors.Is(err, itinerary.ErrNoSuchDay),
		errors.Is(err, itinerary.ErrSlotOutOfRange),
		errors.Is(err, itinerary.ErrEmptyReplacement):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream request timed out"})
	default:
		logger.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

package handlers

import (
	"time"

	"tripweaver/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	// FrontendURLs are allowed in addition to the local dev servers.
	FrontendURLs []string
	Verifier     *auth.Verifier
	Logger       zerolog.Logger
}

// RequestLogger attaches a request-scoped logger to the request context and
// logs each completed request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote_ip", c.ClientIP()).
			Logger()

		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))
		c.Next()

		reqLogger.Info().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))

	// Trusted proxies (the platform sits behind a proxy)
	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	allowedOrigins := append([]string{"http://localhost:5173", "http://localhost:3000"}, cfg.FrontendURLs...)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Verifier != nil {
		r.Use(cfg.Verifier.Middleware())
	}
	requireAuth := auth.Require()

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/plans", requireAuth, h.CreatePlan)
		api.POST("/plans/load", h.LoadPlan)
		api.GET("/plans/:id", h.GetPlan)
		api.DELETE("/plans/:id", h.ClosePlan)
		api.GET("/plans/:id/days/:day", h.GetDay)
		api.GET("/plans/:id/days/:day/markers", h.GetMarkers)
		api.GET("/plans/:id/summary", h.GetSummary)
		api.GET("/plans/:id/pdf", h.DownloadPlan)
		api.POST("/plans/:id/slots/refresh", requireAuth, h.RefreshSlot)
		api.POST("/plans/:id/slots/alternatives", requireAuth, h.ProposeAlternatives)
		api.POST("/plans/:id/slots/select", h.SelectSlot)
		api.POST("/plans/:id/save", requireAuth, h.SavePlan)

		api.POST("/inquiries", h.CreateInquiry)
		api.POST("/bookings", requireAuth, h.CreateBooking)

		api.GET("/hotels/search", h.SearchHotels)
		api.GET("/hotels/cities", h.ListCities)
		api.GET("/hotels/:id/offers", h.HotelOffers)
		api.GET("/spots/search", h.SearchSpots)

		me := api.Group("/me", requireAuth)
		me.GET("/plans", h.ListPlans)
		me.POST("/plans/:plan_id/open", h.OpenSavedPlan)
		me.GET("/inquiries", h.ListInquiries)
		me.GET("/bookings", h.ListBookings)
		me.GET("/profile", h.GetProfile)
		me.PUT("/profile", h.UpdateProfile)
		me.DELETE("/profile", h.DeleteProfile)
	}

	return r
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type HotelSearchResponse struct {
	Hotels []services.Hotel `json:"hotels"`
	Source string           `json:"source"` // "live" or "estimated"
}

// SearchHotels backs the booking page's hotel search.
func (h *Handler) SearchHotels(c *gin.Context) {
	var q services.HotelQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	hotels, live, err := h.hotels.SearchHotels(c.Request.Context(), q)
	if errors.Is(err, services.ErrInvalidHotelQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		// Live search failed; the estimate keeps the page usable.
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("hotel search failed, using fallback")
		hotels, live = services.FallbackHotels(strings.ToUpper(strings.TrimSpace(q.CityCode))), false
	}

	source := "live"
	if !live {
		source = "estimated"
	}
	c.JSON(http.StatusOK, HotelSearchResponse{Hotels: hotels, Source: source})
}

type RoomOffersResponse struct {
	Offers []services.RoomOffer `json:"offers"`
	Source string               `json:"source"`
}

// HotelOffers lists the room types of one hotel for the booking form.
func (h *Handler) HotelOffers(c *gin.Context) {
	var q services.OfferQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	hotelID := strings.ToUpper(strings.TrimSpace(c.Param("id")))
	offers, live, err := h.hotels.HotelOffers(c.Request.Context(), hotelID, q)
	if errors.Is(err, services.ErrInvalidHotelQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Str("hotel", hotelID).Msg("room offers failed, using fallback")
		offers, live = services.FallbackRoomOffers(hotelID, q), false
	}

	source := "live"
	if !live {
		source = "estimated"
	}
	c.JSON(http.StatusOK, RoomOffersResponse{Offers: offers, Source: source})
}

// SearchSpots finds attractions, restaurants and lodging by region or keyword.
func (h *Handler) SearchSpots(c *gin.Context) {
	var q services.SpotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(q.Sido) == "" && strings.TrimSpace(q.Keyword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Select a region or enter a keyword"})
		return
	}

	spots, err := h.planner.SearchSpots(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spots": spots})
}

func (h *Handler) ListCities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cities": services.Cities()})
}

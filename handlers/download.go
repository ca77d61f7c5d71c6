package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DownloadPlan renders the session's current plan as a PDF.
func (h *Handler) DownloadPlan(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}

	pdfBytes, err := services.RenderPlanPDF(store.Snapshot(), h.pdf)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("PDF generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=tripweaver-%s.pdf", c.Param("id")))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *Handler) Health(c *gin.Context) {
	dbStatus := "ok"
	if h.repo == nil {
		dbStatus = "not initialized"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.repo.Ping(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "TripWeaver API",
		"database": dbStatus,
		"sessions": h.sessions.Len(),
	})
}

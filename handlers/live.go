package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkspot-api/services"
)

type LiveParkingHandler struct {
	live *services.LiveParkingService
	log  zerolog.Logger
}

func NewLiveParkingHandler(live *services.LiveParkingService, log zerolog.Logger) *LiveParkingHandler {
	return &LiveParkingHandler{live: live, log: log.With().Str("handler", "live-parking").Logger()}
}

// GetLive refreshes the availability payload and returns it. A failed
// refresh still serves the previous cached payload when one exists; only a
// failure with a cold cache surfaces as an error.
func (h *LiveParkingHandler) GetLive(c *gin.Context) {
	refreshErr := h.live.Refresh(c.Request.Context())
	if refreshErr != nil {
		h.log.Warn().Err(refreshErr).Msg("refresh failed, falling back to cached payload")
	}

	list, err := h.live.CachedList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cached availability"})
		return
	}
	if refreshErr != nil && len(list) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "parking data source unavailable"})
		return
	}

	c.JSON(http.StatusOK, list)
}

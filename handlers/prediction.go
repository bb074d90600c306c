package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkspot-api/services"
)

type PredictionHandler struct {
	predictions *services.PredictionService
	log         zerolog.Logger
}

func NewPredictionHandler(predictions *services.PredictionService, log zerolog.Logger) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, log: log.With().Str("handler", "predictions").Logger()}
}

// GetPredictions returns the six-class occupancy payload, cache-backed with
// a 60s TTL inside the service.
func (h *PredictionHandler) GetPredictions(c *gin.Context) {
	payload, err := h.predictions.PredictNow(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("prediction pipeline failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "prediction pipeline failed"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

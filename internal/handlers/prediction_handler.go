package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/pkg/prediction"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PredictionHandler proxies the external prediction service so browser
// clients call it through the backend instead of cross-origin.
type PredictionHandler struct {
	client *prediction.Client
	logger *logrus.Logger
}

// NewPredictionHandler creates a new prediction proxy handler
func NewPredictionHandler(client *prediction.Client, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{client: client, logger: logger}
}

// Predict forwards a next-visit forecast request upstream
// GET /api/v1/predictions/predecir
func (h *PredictionHandler) Predict(c *gin.Context) {
	h.forward(c, prediction.PredictPath)
}

// OptimalRoute forwards a route-optimization request upstream
// GET /api/v1/predictions/ruta_optima
func (h *PredictionHandler) OptimalRoute(c *gin.Context) {
	h.forward(c, prediction.OptimalRoutePath)
}

// forward relays the request query string upstream and returns the upstream
// status and body untouched, so clients see exactly what the service said.
func (h *PredictionHandler) forward(c *gin.Context, path string) {
	status, body, err := h.client.Forward(c.Request.Context(), path, c.Request.URL.Query())
	if err != nil {
		h.logger.WithError(err).WithField("path", path).Error("Prediction service call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Prediction service unavailable"})
		return
	}

	contentType := "application/json"
	c.Data(status, contentType, body)
}

package handlers

import (
	"net/http"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/constants"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Tolerance          float64  `json:"tolerance"`
	AcceptConfidence   float64  `json:"accept_confidence"`
	HighConfidence     float64  `json:"high_confidence"`
	DetectionModel     string   `json:"detection_model"`
	LiveDetectionModel string   `json:"live_detection_model"`
	LiveDownsample     int      `json:"live_downsample"`
	EmbeddingDim       int      `json:"embedding_dim"`
	DatabaseDriver     string   `json:"database_driver"`
	MaxUploadSize      int64    `json:"max_upload_size"`
	AllowedExtensions  []string `json:"allowed_extensions"`
}

// Get returns the recognition settings in effect
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc := h.config.Recognition
	respondJSON(w, http.StatusOK, ConfigResponse{
		Tolerance:          rc.Tolerance,
		AcceptConfidence:   rc.AcceptConfidence,
		HighConfidence:     rc.HighConfidence,
		DetectionModel:     rc.DetectionModel,
		LiveDetectionModel: rc.LiveDetectionModel,
		LiveDownsample:     rc.LiveDownsample,
		EmbeddingDim:       h.config.Embedding.Dim,
		DatabaseDriver:     h.config.Database.Driver,
		MaxUploadSize:      constants.MaxUploadSize,
		AllowedExtensions:  constants.AllowedImageExtensions,
	})
}

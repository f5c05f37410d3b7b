package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// ImagesHandler serves stored enrollment and attendance photos
type ImagesHandler struct {
	images *uploads.Dir
}

// NewImagesHandler creates a new images handler
func NewImagesHandler(images *uploads.Dir) *ImagesHandler {
	return &ImagesHandler{images: images}
}

// Get returns the stored photo with the given file name
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.images.Read(chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, uploads.ErrInvalidName):
		respondError(w, http.StatusBadRequest, "invalid image name")
		return
	case errors.Is(err, os.ErrNotExist):
		respondError(w, http.StatusNotFound, "image not found")
		return
	case err != nil:
		respondServiceError(w, err, "read image")
		return
	}

	w.Header().Set("Content-Type", fingerprint.DetectMIMEType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

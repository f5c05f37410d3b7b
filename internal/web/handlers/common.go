package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/roll-call/internal/camera"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/live"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidUpload),
		errors.Is(err, recognition.ErrInvalidStudent),
		errors.Is(err, recognition.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, recognition.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(err, recognition.ErrDuplicateIdentity),
		errors.Is(err, database.ErrStudentExists),
		errors.Is(err, recognition.ErrNoEnrollments),
		errors.Is(err, live.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, recognition.ErrNoFaceDetected),
		errors.Is(err, recognition.ErrMultipleFacesDetected),
		errors.Is(err, recognition.ErrNoRecognizableFace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes the mapped status for err. Internal errors are
// logged and replaced by a generic message.
func respondServiceError(w http.ResponseWriter, err error, action string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %s", action, sanitizeForLog(err.Error()))
		respondError(w, status, action+" failed")
		return
	}
	respondError(w, status, err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

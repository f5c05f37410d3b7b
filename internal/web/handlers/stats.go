package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// galleryCounter reports the number of enrolled embeddings
type galleryCounter interface {
	Len() int
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	ledger  database.Ledger
	gallery galleryCounter
	now     func() time.Time
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(ledger database.Ledger, gallery galleryCounter) *StatsHandler {
	return &StatsHandler{
		ledger:  ledger,
		gallery: gallery,
		now:     time.Now,
	}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	Students      int    `json:"students"`
	EnrolledFaces int    `json:"enrolled_faces"`
	Date          string `json:"date"`
	PresentToday  int    `json:"present_today"`
	AbsentToday   int    `json:"absent_today"`
}

// Get returns registration and today's attendance counts
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	students, err := h.ledger.CountStudents(r.Context())
	if err != nil {
		respondServiceError(w, err, "count students")
		return
	}

	today := database.CheckInDate(h.now())
	records, err := h.ledger.ListAttendance(r.Context(), today)
	if err != nil {
		respondServiceError(w, err, "list attendance")
		return
	}

	present := make(map[string]struct{}, len(records))
	for _, rec := range records {
		present[rec.StudentID] = struct{}{}
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Students:      students,
		EnrolledFaces: h.gallery.Len(),
		Date:          today,
		PresentToday:  len(present),
		AbsentToday:   max(students-len(present), 0),
	})
}

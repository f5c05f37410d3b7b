package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

// AttendanceHandler handles attendance and recognition endpoints
type AttendanceHandler struct {
	ledger database.AttendanceReader
	taker  *recognition.AttendanceTaker
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(ledger database.AttendanceReader, taker *recognition.AttendanceTaker) *AttendanceHandler {
	return &AttendanceHandler{
		ledger: ledger,
		taker:  taker,
	}
}

// AttendanceResultResponse is one recognized student
type AttendanceResultResponse struct {
	StudentID     string  `json:"student_id"`
	Name          string  `json:"name"`
	Class         string  `json:"class,omitempty"`
	Confidence    float64 `json:"confidence"`
	LowConfidence bool    `json:"low_confidence"`
	Status        string  `json:"status"`
	Message       string  `json:"message"`
}

// AttendanceResponse is the outcome of an attendance photo
type AttendanceResponse struct {
	ImagePath string                     `json:"image_path"`
	Faces     int                        `json:"faces"`
	Students  []AttendanceResultResponse `json:"students"`
}

func toAttendanceResponse(report *recognition.AttendanceReport) AttendanceResponse {
	resp := AttendanceResponse{
		ImagePath: report.ImagePath,
		Faces:     report.Faces,
		Students:  make([]AttendanceResultResponse, len(report.Results)),
	}
	for i, res := range report.Results {
		resp.Students[i] = AttendanceResultResponse{
			StudentID:     res.StudentID,
			Name:          res.Name,
			Class:         res.Class,
			Confidence:    res.Confidence,
			LowConfidence: res.LowConfidence,
			Status:        string(res.Outcome),
			Message:       res.Message,
		}
	}
	return resp
}

// Mark records attendance for every enrolled student recognized in an uploaded photo
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	image, err := readUploadedImage(w, r)
	if err != nil {
		respondServiceError(w, err, "take attendance")
		return
	}

	report, err := h.taker.Take(r.Context(), image, constants.SourceUpload)
	if err != nil {
		respondServiceError(w, err, "take attendance")
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceResponse(report))
}

// AttendanceRecordResponse is one check-in in the history
type AttendanceRecordResponse struct {
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	Class       string    `json:"class,omitempty"`
	CheckInTime time.Time `json:"check_in_time"`
	CheckInDate string    `json:"check_in_date"`
	ImagePath   string    `json:"image_path,omitempty"`
	Status      string    `json:"status"`
}

// History lists check-ins for the date query parameter, or the latest ones without it
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	records, err := h.ledger.ListAttendance(r.Context(), date)
	if err != nil {
		respondServiceError(w, err, "list attendance")
		return
	}

	result := make([]AttendanceRecordResponse, len(records))
	for i, rec := range records {
		result[i] = AttendanceRecordResponse{
			StudentID:   rec.StudentID,
			Name:        rec.Name,
			Class:       rec.Class,
			CheckInTime: rec.CheckInTime,
			CheckInDate: rec.CheckInDate,
			ImagePath:   rec.ImagePath,
			Status:      rec.Status,
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// IdentificationResponse is the match for one face in a recognized photo
type IdentificationResponse struct {
	Box        facematch.Box `json:"box"`
	Label      string        `json:"label"`
	Matched    bool          `json:"matched"`
	Distance   float64       `json:"distance,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Tier       string        `json:"tier"`
}

// Recognize identifies the faces in an uploaded photo without recording attendance
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	image, err := readUploadedImage(w, r)
	if err != nil {
		respondServiceError(w, err, "recognize faces")
		return
	}

	ids, err := h.taker.Identify(r.Context(), image)
	if err != nil {
		respondServiceError(w, err, "recognize faces")
		return
	}

	result := make([]IdentificationResponse, len(ids))
	for i, id := range ids {
		result[i] = IdentificationResponse{
			Box:        id.Box,
			Label:      id.Label,
			Matched:    id.Matched,
			Distance:   id.Distance,
			Confidence: id.Confidence,
			Tier:       id.Tier.String(),
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces":   len(result),
		"results": result,
	})
}

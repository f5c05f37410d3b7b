package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

// StudentsHandler handles student registration endpoints
type StudentsHandler struct {
	ledger   database.StudentReader
	enroller *recognition.Enroller
	remover  *recognition.Remover
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(ledger database.StudentReader, enroller *recognition.Enroller, remover *recognition.Remover) *StudentsHandler {
	return &StudentsHandler{
		ledger:   ledger,
		enroller: enroller,
		remover:  remover,
	}
}

// StudentResponse represents a registered student
type StudentResponse struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Class     string    `json:"class,omitempty"`
	ImagePath string    `json:"image_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toStudentResponse(st database.Student) StudentResponse {
	return StudentResponse{
		StudentID: st.StudentID,
		Name:      st.Name,
		Email:     st.Email,
		Phone:     st.Phone,
		Class:     st.Class,
		ImagePath: st.ImagePath,
		CreatedAt: st.CreatedAt,
	}
}

// List returns registered students, optionally filtered by the q query parameter
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.ledger.ListStudents(r.Context())
	if err != nil {
		respondServiceError(w, err, "list students")
		return
	}

	students = recognition.FilterStudents(students, r.URL.Query().Get("q"))
	result := make([]StudentResponse, len(students))
	for i, st := range students {
		result[i] = toStudentResponse(st)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a single student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	st, err := h.ledger.GetStudent(r.Context(), studentID)
	if err != nil {
		respondServiceError(w, err, "get student")
		return
	}
	if st == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(*st))
}

// Enroll registers a student from a multipart form with a single-face photo
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	image, err := readUploadedImage(w, r)
	if err != nil {
		respondServiceError(w, err, "enroll student")
		return
	}

	st, err := h.enroller.Enroll(r.Context(), recognition.EnrollRequest{
		StudentID: r.FormValue("student_id"),
		Name:      r.FormValue("name"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Class:     r.FormValue("class"),
		Image:     image,
	})
	if err != nil {
		respondServiceError(w, err, "enroll student")
		return
	}

	respondJSON(w, http.StatusCreated, toStudentResponse(*st))
}

// Delete removes a student from the ledger and the gallery
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	if err := h.remover.Delete(r.Context(), studentID); err != nil {
		respondServiceError(w, err, "delete student")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"student_id": studentID,
		"message":    "student deleted",
	})
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

func enrollFields(studentID, name string) map[string]string {
	return map[string]string{
		"student_id": studentID,
		"name":       name,
		"email":      "student@example.com",
		"class":      "CS1",
	}
}

func TestStudentsHandler_Enroll_Success(t *testing.T) {
	env := newTestEnv(t)
	env.detector.set(faceAt(vec(0.1, 0.2)))
	handler := env.studentsHandler()

	req := multipartRequest(t, http.MethodPost, "/api/v1/students", enrollFields("S1", "Nguyễn Văn An"), "an.jpg", testJPEG(t))
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var result StudentResponse
	parseJSONResponse(t, recorder, &result)
	if result.StudentID != "S1" || result.Name != "Nguyễn Văn An" || result.Class != "CS1" {
		t.Errorf("unexpected student: %+v", result)
	}
	if result.ImagePath == "" {
		t.Error("expected enrollment image path")
	}
	if !env.gallery.Has("S1") {
		t.Error("expected S1 in the gallery")
	}
	if _, err := env.images.Read(result.ImagePath); err != nil {
		t.Errorf("enrollment image not stored: %v", err)
	}
}

func TestStudentsHandler_Enroll_Errors(t *testing.T) {
	tests := []struct {
		name        string
		faces       []fingerprint.Face
		fields      map[string]string
		filename    string
		expected    int
		expectedErr string
	}{
		{
			name:        "missing image",
			fields:      enrollFields("S1", "An"),
			expected:    http.StatusBadRequest,
			expectedErr: "invalid upload: no image provided",
		},
		{
			name:        "disallowed extension",
			fields:      enrollFields("S1", "An"),
			filename:    "an.gif",
			expected:    http.StatusBadRequest,
			expectedErr: "invalid upload: allowed types are png, jpg and jpeg",
		},
		{
			name:        "missing name",
			faces:       []fingerprint.Face{faceAt(vec(0.1))},
			fields:      map[string]string{"student_id": "S1"},
			filename:    "an.jpg",
			expected:    http.StatusBadRequest,
			expectedErr: "student id and name are required",
		},
		{
			name:        "no face",
			fields:      enrollFields("S1", "An"),
			filename:    "an.jpg",
			expected:    http.StatusUnprocessableEntity,
			expectedErr: "no face detected",
		},
		{
			name:     "two faces",
			faces:    []fingerprint.Face{faceAt(vec(0.1)), faceAt(vec(0.9))},
			fields:   enrollFields("S1", "An"),
			filename: "an.jpg",
			expected: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.detector.set(tt.faces...)
			handler := env.studentsHandler()

			req := multipartRequest(t, http.MethodPost, "/api/v1/students", tt.fields, tt.filename, testJPEG(t))
			recorder := httptest.NewRecorder()
			handler.Enroll(recorder, req)

			assertStatusCode(t, recorder, tt.expected)
			if tt.expectedErr != "" {
				assertJSONError(t, recorder, tt.expectedErr)
			}
			if env.gallery.Len() != 0 {
				t.Errorf("expected empty gallery, got %d", env.gallery.Len())
			}
			if env.ledger.AddStudentCalls != 0 {
				t.Errorf("expected no ledger writes, got %d", env.ledger.AddStudentCalls)
			}
		})
	}
}

func TestStudentsHandler_Enroll_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "S1", "An", vec(0.1))
	env.detector.set(faceAt(vec(0.5)))
	handler := env.studentsHandler()

	req := multipartRequest(t, http.MethodPost, "/api/v1/students", enrollFields("S1", "Someone Else"), "b.png", testJPEG(t))
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	if env.gallery.Len() != 1 {
		t.Errorf("expected gallery size 1, got %d", env.gallery.Len())
	}
}

func TestStudentsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.AddStudentDirect(database.Student{StudentID: "S1", Name: "Trần Thị Bình", Class: "CS1"})
	env.ledger.AddStudentDirect(database.Student{StudentID: "S2", Name: "Lê Văn Cường", Class: "EE2"})
	handler := env.studentsHandler()

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"S2", "S1"}},
		{"?q=binh", []string{"S1"}},
		{"?q=EE", []string{"S2"}},
		{"?q=nobody", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/students"+tt.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var result []StudentResponse
			parseJSONResponse(t, recorder, &result)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d students, got %d", len(tt.expected), len(result))
			}
			for i, id := range tt.expected {
				if result[i].StudentID != id {
					t.Errorf("result[%d] = %s, want %s", i, result[i].StudentID, id)
				}
			}
		})
	}
}

func TestStudentsHandler_Get(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.AddStudentDirect(database.Student{StudentID: "S1", Name: "An"})
	handler := env.studentsHandler()

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/students/S1", nil), map[string]string{"id": "S1"})
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/students/S9", nil), map[string]string{"id": "S9"})
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "student not found")
}

func TestStudentsHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "S1", "An", vec(0.1))
	handler := env.studentsHandler()

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/students/S1", nil), map[string]string{"id": "S1"})
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if env.gallery.Has("S1") {
		t.Error("expected S1 removed from the gallery")
	}

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

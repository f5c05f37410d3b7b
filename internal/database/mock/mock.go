// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// MockLedger is a mock implementation of database.Ledger
type MockLedger struct {
	mu         sync.RWMutex
	students   map[string]*database.Student
	attendance []database.AttendanceRecord
	nextID     int64

	// Error injection
	AddStudentError     error
	GetStudentError     error
	ListStudentsError   error
	DeleteStudentError  error
	MarkAttendanceError error
	ListAttendanceError error

	// Per-student error injection, keyed by student ID
	GetStudentErrors     map[string]error
	MarkAttendanceErrors map[string]error

	// Call tracking
	AddStudentCalls     int
	DeleteStudentCalls  int
	MarkAttendanceCalls int
}

var _ database.Ledger = (*MockLedger)(nil)

// NewMockLedger creates a new mock ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{
		students: make(map[string]*database.Student),
	}
}

// AddStudentDirect adds a student without going through error injection
func (m *MockLedger) AddStudentDirect(st database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	st.ID = m.nextID
	m.students[st.StudentID] = &st
}

// AddStudent registers a student
func (m *MockLedger) AddStudent(ctx context.Context, student database.Student) (*database.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddStudentCalls++
	if m.AddStudentError != nil {
		return nil, m.AddStudentError
	}
	if _, ok := m.students[student.StudentID]; ok {
		return nil, fmt.Errorf("%w: %s", database.ErrStudentExists, student.StudentID)
	}
	m.nextID++
	student.ID = m.nextID
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}
	m.students[student.StudentID] = &student
	result := student
	return &result, nil
}

// GetStudent retrieves a student by ID
func (m *MockLedger) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	if err := m.GetStudentErrors[studentID]; err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.students[studentID]
	if !ok {
		return nil, nil
	}
	result := *st
	return &result, nil
}

// ListStudents returns all students ordered by name
func (m *MockLedger) ListStudents(ctx context.Context) ([]database.Student, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	students := make([]database.Student, 0, len(m.students))
	for _, st := range m.students {
		students = append(students, *st)
	}
	slices.SortFunc(students, func(a, b database.Student) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.StudentID, b.StudentID))
	})
	return students, nil
}

// CountStudents returns the number of students
func (m *MockLedger) CountStudents(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// DeleteStudent removes a student and their attendance records
func (m *MockLedger) DeleteStudent(ctx context.Context, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteStudentCalls++
	if m.DeleteStudentError != nil {
		return false, m.DeleteStudentError
	}
	if _, ok := m.students[studentID]; !ok {
		return false, nil
	}
	delete(m.students, studentID)
	m.attendance = slices.DeleteFunc(m.attendance, func(r database.AttendanceRecord) bool {
		return r.StudentID == studentID
	})
	return true, nil
}

// MarkAttendance records a check-in, once per student per calendar day
func (m *MockLedger) MarkAttendance(ctx context.Context, studentID string, at time.Time, imagePath string) (*database.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkAttendanceCalls++
	if m.MarkAttendanceError != nil {
		return nil, m.MarkAttendanceError
	}
	if err := m.MarkAttendanceErrors[studentID]; err != nil {
		return nil, err
	}
	date := database.CheckInDate(at)
	if m.hasAttendanceLocked(studentID, date) {
		return nil, fmt.Errorf("%w: %s on %s", database.ErrAlreadyMarkedToday, studentID, date)
	}
	m.nextID++
	rec := database.AttendanceRecord{
		ID:          m.nextID,
		StudentID:   studentID,
		CheckInTime: at,
		CheckInDate: date,
		ImagePath:   imagePath,
		Status:      database.StatusPresent,
	}
	if st, ok := m.students[studentID]; ok {
		rec.Name = st.Name
		rec.Class = st.Class
	}
	m.attendance = append(m.attendance, rec)
	return &rec, nil
}

// HasAttendance reports whether the student checked in on the given day
func (m *MockLedger) HasAttendance(ctx context.Context, studentID, date string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasAttendanceLocked(studentID, date), nil
}

func (m *MockLedger) hasAttendanceLocked(studentID, date string) bool {
	return slices.ContainsFunc(m.attendance, func(r database.AttendanceRecord) bool {
		return r.StudentID == studentID && r.CheckInDate == date
	})
}

// ListAttendance returns records newest first, filtered by date when given
func (m *MockLedger) ListAttendance(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []database.AttendanceRecord
	for _, r := range m.attendance {
		if date == "" || r.CheckInDate == date {
			records = append(records, r)
		}
	}
	slices.SortStableFunc(records, func(a, b database.AttendanceRecord) int {
		return b.CheckInTime.Compare(a.CheckInTime)
	})
	if date == "" && len(records) > database.DefaultHistoryLimit {
		records = records[:database.DefaultHistoryLimit]
	}
	return records, nil
}

// AttendanceCount returns the number of stored attendance records
func (m *MockLedger) AttendanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attendance)
}

// Close is a no-op
func (m *MockLedger) Close() error {
	return nil
}

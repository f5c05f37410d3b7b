package database

import (
	"context"
	"time"
)

// StudentReader provides read-only access to registered students
type StudentReader interface {
	// GetStudent retrieves a student by student ID, returns nil if not found
	GetStudent(ctx context.Context, studentID string) (*Student, error)
	// ListStudents returns all students ordered by name
	ListStudents(ctx context.Context) ([]Student, error)
	// CountStudents returns the number of registered students
	CountStudents(ctx context.Context) (int, error)
}

// StudentWriter provides write access to registered students
type StudentWriter interface {
	StudentReader

	// AddStudent registers a student. Returns ErrStudentExists if the student ID is taken.
	AddStudent(ctx context.Context, student Student) (*Student, error)

	// DeleteStudent removes a student together with their attendance records.
	// Returns false if no student had the given ID.
	DeleteStudent(ctx context.Context, studentID string) (bool, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// ListAttendance returns records for one calendar day (YYYY-MM-DD), newest first.
	// An empty date returns the latest DefaultHistoryLimit records.
	ListAttendance(ctx context.Context, date string) ([]AttendanceRecord, error)
	// HasAttendance reports whether the student checked in on the given day
	HasAttendance(ctx context.Context, studentID, date string) (bool, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// MarkAttendance records a check-in at the given time. Returns ErrAlreadyMarkedToday
	// if the student already has a record for the same calendar day.
	MarkAttendance(ctx context.Context, studentID string, at time.Time, imagePath string) (*AttendanceRecord, error)
}

// Ledger is the full student and attendance store
type Ledger interface {
	StudentWriter
	AttendanceWriter
	Close() error
}

package database

import (
	"errors"
	"time"
)

// StatusPresent is the only attendance status the service records.
const StatusPresent = "present"

// DateLayout is the layout of AttendanceRecord.CheckInDate.
const DateLayout = "2006-01-02"

// DefaultHistoryLimit caps attendance history when no date filter is given.
const DefaultHistoryLimit = 100

var (
	// ErrStudentExists is returned when adding a student whose ID is already registered.
	ErrStudentExists = errors.New("student already exists")

	// ErrAlreadyMarkedToday is returned when a student already has an attendance
	// record for the calendar day of the check-in.
	ErrAlreadyMarkedToday = errors.New("attendance already marked today")
)

// Student represents a registered student
type Student struct {
	ID        int64
	StudentID string
	Name      string
	Email     string
	Phone     string
	Class     string
	ImagePath string // enrollment image, relative to the upload directory
	CreatedAt time.Time
}

// AttendanceRecord represents one check-in, joined with the student's name and class
type AttendanceRecord struct {
	ID          int64
	StudentID   string
	Name        string
	Class       string
	CheckInTime time.Time
	CheckInDate string // local calendar day of CheckInTime, see DateLayout
	ImagePath   string
	Status      string
}

// CheckInDate returns the calendar day used for attendance deduplication,
// evaluated in the location of t.
func CheckInDate(t time.Time) string {
	return t.Format(DateLayout)
}

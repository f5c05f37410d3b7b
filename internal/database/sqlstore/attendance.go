package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// MarkAttendance records a check-in for the calendar day of at.
// The pre-check gives a clean error in the common case and the unique index
// on (student_id, check_in_date) settles concurrent check-ins.
func (s *Store) MarkAttendance(ctx context.Context, studentID string, at time.Time, imagePath string) (*database.AttendanceRecord, error) {
	date := database.CheckInDate(at)

	marked, err := s.HasAttendance(ctx, studentID, date)
	if err != nil {
		return nil, err
	}
	if marked {
		return nil, fmt.Errorf("%w: %s on %s", database.ErrAlreadyMarkedToday, studentID, date)
	}

	id, err := s.insert(ctx, `
		INSERT INTO attendance (student_id, check_in_time, check_in_date, image_path, status)
		VALUES (?, ?, ?, ?, ?)`,
		studentID, toMillis(at), date, imagePath, database.StatusPresent,
	)
	if err != nil {
		if s.dialect.unique(err) {
			return nil, fmt.Errorf("%w: %s on %s", database.ErrAlreadyMarkedToday, studentID, date)
		}
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	return &database.AttendanceRecord{
		ID:          id,
		StudentID:   studentID,
		CheckInTime: at,
		CheckInDate: date,
		ImagePath:   imagePath,
		Status:      database.StatusPresent,
	}, nil
}

// HasAttendance reports whether the student checked in on the given day
func (s *Store) HasAttendance(ctx context.Context, studentID, date string) (bool, error) {
	var count int
	err := s.queryRow(ctx,
		"SELECT COUNT(*) FROM attendance WHERE student_id = ? AND check_in_date = ?",
		studentID, date,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return count > 0, nil
}

// ListAttendance returns records for one day, or the latest records when date is empty.
func (s *Store) ListAttendance(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	const base = `
		SELECT a.id, a.student_id, COALESCE(s.name, ''), COALESCE(s.class, ''),
		       a.check_in_time, a.check_in_date, a.image_path, a.status
		FROM attendance a
		LEFT JOIN students s ON s.student_id = a.student_id`

	var query string
	var args []any
	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
		}
		query = base + " WHERE a.check_in_date = ? ORDER BY a.check_in_time DESC, a.id DESC"
		args = append(args, date)
	} else {
		query = base + " ORDER BY a.check_in_time DESC, a.id DESC LIMIT ?"
		args = append(args, database.DefaultHistoryLimit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var r database.AttendanceRecord
		var checkIn int64
		if err := rows.Scan(&r.ID, &r.StudentID, &r.Name, &r.Class, &checkIn, &r.CheckInDate, &r.ImagePath, &r.Status); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		r.CheckInTime = fromMillis(checkIn)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/roll-call/internal/database"
)

const studentColumns = "id, student_id, name, email, phone, class, image_path, created_at"

func scanStudent(row interface{ Scan(...any) error }) (database.Student, error) {
	var st database.Student
	var createdAt int64
	if err := row.Scan(&st.ID, &st.StudentID, &st.Name, &st.Email, &st.Phone, &st.Class, &st.ImagePath, &createdAt); err != nil {
		return database.Student{}, err
	}
	st.CreatedAt = fromMillis(createdAt)
	return st, nil
}

// AddStudent registers a student. Returns database.ErrStudentExists if the ID is taken.
func (s *Store) AddStudent(ctx context.Context, student database.Student) (*database.Student, error) {
	student.StudentID = strings.TrimSpace(student.StudentID)
	student.Name = strings.TrimSpace(student.Name)
	if student.StudentID == "" || student.Name == "" {
		return nil, errors.New("student id and name are required")
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = s.now()
	}

	id, err := s.insert(ctx, `
		INSERT INTO students (student_id, name, email, phone, class, image_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		student.StudentID, student.Name, student.Email, student.Phone, student.Class,
		student.ImagePath, toMillis(student.CreatedAt),
	)
	if err != nil {
		if s.dialect.unique(err) {
			return nil, fmt.Errorf("%w: %s", database.ErrStudentExists, student.StudentID)
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}
	student.ID = id
	return &student, nil
}

// GetStudent retrieves a student by student ID, returns nil if not found
func (s *Store) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	st, err := scanStudent(s.queryRow(ctx,
		"SELECT "+studentColumns+" FROM students WHERE student_id = ?", studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

// ListStudents returns all students ordered by name
func (s *Store) ListStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := s.query(ctx, "SELECT "+studentColumns+" FROM students ORDER BY name, student_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// CountStudents returns the number of registered students
func (s *Store) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// DeleteStudent removes a student and their attendance records in one transaction.
func (s *Store) DeleteStudent(ctx context.Context, studentID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM attendance WHERE student_id = ?"), studentID); err != nil {
		return false, fmt.Errorf("delete attendance: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM students WHERE student_id = ?"), studentID)
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return affected > 0, nil
}

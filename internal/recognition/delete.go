package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Remover deletes a student from the ledger, the gallery and the image store.
type Remover struct {
	deps   Deps
	ledger database.StudentWriter
}

// NewRemover creates a deletion coordinator.
func NewRemover(deps Deps, ledger database.StudentWriter) *Remover {
	return &Remover{deps: deps, ledger: ledger}
}

// Delete removes the student's ledger row (with attendance), gallery entry and
// enrollment image. Every step runs even if an earlier one failed; the
// failures are joined. Returns ErrStudentNotFound if neither store knew the student.
func (r *Remover) Delete(ctx context.Context, studentID string) error {
	var errs []error

	student, err := r.ledger.GetStudent(ctx, studentID)
	if err != nil {
		errs = append(errs, fmt.Errorf("looking up student: %w", err))
	}

	deletedRow, err := r.ledger.DeleteStudent(ctx, studentID)
	if err != nil {
		errs = append(errs, fmt.Errorf("deleting student record: %w", err))
	}

	removedFace, err := r.deps.Gallery.Remove(studentID)
	if err != nil {
		errs = append(errs, fmt.Errorf("removing face encoding: %w", err))
	}

	if student != nil && student.ImagePath != "" {
		if err := r.deps.Images.Remove(student.ImagePath); err != nil {
			errs = append(errs, fmt.Errorf("removing enrollment image: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !deletedRow && !removedFace {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	log.Printf("Deleted student %s (record: %v, encoding: %v)", studentID, deletedRow, removedFace)
	return nil
}

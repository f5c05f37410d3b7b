// Package uploads stores enrollment and attendance images on disk.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"
	"github.com/kozaktomas/roll-call/internal/constants"
)

// ErrInvalidName is returned for file names that would escape the upload directory.
var ErrInvalidName = errors.New("invalid image file name")

// Dir is a flat directory of stored images addressed by file name.
type Dir struct {
	root string
}

// NewDir creates the upload directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, constants.UploadDirPerm); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the absolute location of a stored file.
func (d *Dir) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.root, name), nil
}

// Save atomically writes data under name.
func (d *Dir) Save(name string, data []byte) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, constants.UploadFilePerm); err != nil {
		return fmt.Errorf("writing image %s: %w", name, err)
	}
	return nil
}

// Read returns the contents of a stored file.
func (d *Dir) Read(name string) ([]byte, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (d *Dir) Remove(name string) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing image %s: %w", name, err)
	}
	return nil
}

// SanitizeName keeps ASCII letters, digits, dots, dashes and underscores.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// EnrollmentName returns a unique file name for a student's enrollment image.
func EnrollmentName(studentID string, t time.Time) string {
	return uniqueName(studentID, t)
}

// AttendanceName returns a unique file name for an attendance image.
func AttendanceName(source string, t time.Time) string {
	return uniqueName(source, t)
}

// uniqueName builds <prefix>_<timestamp>_<short uuid>.jpg. The random suffix
// keeps names apart within the same second and across prefixes that sanitize
// to the same string.
func uniqueName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.jpg", SanitizeName(prefix), t.Format(constants.FileTimestampLayout), uuid.NewString()[:8])
}

// AllowedFile reports whether filename has an accepted image extension.
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && slices.Contains(constants.AllowedImageExtensions, ext)
}

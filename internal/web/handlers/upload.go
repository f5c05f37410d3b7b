package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// imageField is the multipart field carrying the photo.
const imageField = "image"

var (
	errInvalidUpload  = errors.New("invalid upload")
	errUploadTooLarge = errors.New("upload exceeds 16 MiB")
)

// readUploadedImage parses a multipart request and returns the photo in the image field.
// Only png, jpg and jpeg file names are accepted.
func readUploadedImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return nil, fmt.Errorf("%w: failed to parse multipart form", errInvalidUpload)
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return nil, fmt.Errorf("%w: no image provided", errInvalidUpload)
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, fmt.Errorf("%w: no file selected", errInvalidUpload)
	}
	if !uploads.AllowedFile(header.Filename) {
		return nil, fmt.Errorf("%w: allowed types are png, jpg and jpeg", errInvalidUpload)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image", errInvalidUpload)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", errInvalidUpload)
	}
	return data, nil
}

// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (16MB)
	MaxUploadSize = 16 << 20

	// UploadDirPerm is the permission used when creating the upload directory
	UploadDirPerm = 0o750

	// UploadFilePerm is the permission used for stored images
	UploadFilePerm = 0o640
)

// AllowedImageExtensions lists the accepted upload file extensions (lowercase, without dot)
var AllowedImageExtensions = []string{"png", "jpg", "jpeg"}

// Attendance image sources
const (
	// SourceUpload marks attendance taken from an uploaded photo
	SourceUpload = "upload"

	// SourceWebcam marks attendance taken from a live camera capture
	SourceWebcam = "webcam"
)

// Timestamp layout used in stored image file names (YYYYmmddHHMMSS)
const FileTimestampLayout = "20060102150405"

// LowConfidenceNotice is appended to attendance messages that need human review
const LowConfidenceNotice = " (low confidence - please verify)"

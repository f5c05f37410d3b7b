package constants

import "time"

// Live stream constants
const (
	// SubscriberBuffer is the number of overlays buffered per live subscriber
	// before frames start being dropped for that subscriber
	SubscriberBuffer = 2

	// MJPEGBoundary separates frames in the multipart video feed
	MJPEGBoundary = "frame"

	// CameraFrameTimeout is how long a single frame read may block
	CameraFrameTimeout = 5 * time.Second

	// LiveDetectTimeout bounds the embedding request for one live frame
	LiveDetectTimeout = 10 * time.Second
)

// EmbeddingRequestTimeout bounds any single request to the embedding server
const EmbeddingRequestTimeout = 2 * time.Minute

// Batch enrollment constants
const (
	// DefaultConcurrency is the default number of parallel enrollment workers
	DefaultConcurrency = 1
)

// HTTP server timeouts
const (
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

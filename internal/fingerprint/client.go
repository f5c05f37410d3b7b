// Package fingerprint talks to the face embedding server and prepares frames for it.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/facematch"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Detection models understood by the embedding server.
const (
	ModelHOG = "hog"
	ModelCNN = "cnn"
)

// Face is one detected face with its embedding and bounding box in image pixels.
type Face struct {
	Index     int
	Box       facematch.Box
	Embedding facematch.Embedding
	Score     float64
}

// faceDetection represents a single detected face in the server response
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Client detects faces and computes their embeddings using the embedding server
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new face client. A dim of 0 accepts any embedding length.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: constants.EmbeddingRequestTimeout},
	}
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
// The part carries an explicit Content-Type header based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectAndEncode detects every face in the image and returns one embedding per face,
// in the order the server reports them. An image without faces yields an empty slice.
func (c *Client) DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]Face, error) {
	endpoint := "/embed/face"
	if model != "" {
		endpoint += "?model=" + url.QueryEscape(model)
	}

	body, err := c.postMultipartImage(ctx, endpoint, imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for i, fd := range faceResp.Faces {
		if len(fd.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", i)
		}
		if c.dim > 0 && len(fd.Embedding) != c.dim {
			return nil, fmt.Errorf("face %d: embedding has %d dimensions, want %d", i, len(fd.Embedding), c.dim)
		}
		box, ok := facematch.BoxFromCorners(fd.BBox)
		if !ok {
			return nil, fmt.Errorf("face %d: invalid bbox %v", i, fd.BBox)
		}
		faces = append(faces, Face{
			Index:     fd.FaceIndex,
			Box:       box,
			Embedding: facematch.Embedding(fd.Embedding),
			Score:     fd.DetScore,
		})
	}

	return faces, nil
}

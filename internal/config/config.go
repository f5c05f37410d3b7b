package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Storage     StorageConfig
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Recognition RecognitionConfig
	Camera      CameraConfig
	Web         WebConfig
}

type StorageConfig struct {
	DataDir     string // root for every file the service writes (default ./data)
	UploadDir   string // enrollment and attendance images (default DATA_DIR/uploads)
	GalleryPath string // gallery blob (default DATA_DIR/models/face_encodings.gob)
}

type DatabaseConfig struct {
	Driver       string // sqlite, postgres or mysql (default sqlite)
	URL          string // DSN; for sqlite defaults to DATA_DIR/attendance.db
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128
}

type RecognitionConfig struct {
	Tolerance          float64 `yaml:"tolerance"`
	AcceptConfidence   float64 `yaml:"accept_confidence"`
	HighConfidence     float64 `yaml:"high_confidence"`
	DetectionModel     string  `yaml:"detection_model"`
	LiveDetectionModel string  `yaml:"live_detection_model"`
	LiveDownsample     int     `yaml:"live_downsample"`
	LiveFrameTimeout   int     `yaml:"live_frame_timeout_seconds"`
}

type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type WebConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins []string
}

type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Embedding   struct {
		Dim int `yaml:"dim"`
	} `yaml:"embedding"`
	Camera CameraConfig `yaml:"camera"`
	Web    WebConfig    `yaml:"web"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	dataDir := envString("DATA_DIR", "data")
	driver := strings.ToLower(envString("DATABASE_DRIVER", "sqlite"))
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && driver == "sqlite" {
		dbURL = filepath.Join(dataDir, "attendance.db")
	}

	return &Config{
		Storage: StorageConfig{
			DataDir:     dataDir,
			UploadDir:   envString("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
			GalleryPath: envString("GALLERY_PATH", filepath.Join(dataDir, "models", "face_encodings.gob")),
		},
		Database: DatabaseConfig{
			Driver:       driver,
			URL:          dbURL,
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", "http://localhost:8000"),
			Dim: envInt("EMBEDDING_DIM", def.Embedding.Dim),
		},
		Recognition: RecognitionConfig{
			Tolerance:          envFloat("FACE_TOLERANCE", def.Recognition.Tolerance),
			AcceptConfidence:   envFloat("FACE_ACCEPT_CONFIDENCE", def.Recognition.AcceptConfidence),
			HighConfidence:     envFloat("FACE_HIGH_CONFIDENCE", def.Recognition.HighConfidence),
			DetectionModel:     envString("FACE_DETECTION_MODEL", def.Recognition.DetectionModel),
			LiveDetectionModel: def.Recognition.LiveDetectionModel,
			LiveDownsample:     envInt("LIVE_DOWNSAMPLE", def.Recognition.LiveDownsample),
			LiveFrameTimeout:   envInt("LIVE_FRAME_TIMEOUT", def.Recognition.LiveFrameTimeout),
		},
		Camera: CameraConfig{
			Device: envString("CAMERA_DEVICE", def.Camera.Device),
			Width:  envInt("CAMERA_WIDTH", def.Camera.Width),
			Height: envInt("CAMERA_HEIGHT", def.Camera.Height),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", def.Web.Host),
			Port:           envInt("WEB_PORT", def.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

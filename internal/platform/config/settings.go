package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fixed local layout. Segments are written here and picked up again by the
// startup reconciler after a crash.
const (
	SegmentDir       = "./videos"
	SegmentExtension = ".h264"
)

// Storage backends.
const (
	BackendAzure  = "azure"
	BackendDir    = "dir"
	BackendMemory = "memory"
)

// Capture sources.
const (
	SourceFFmpeg    = "ffmpeg"
	SourceSynthetic = "synthetic"
)

// Quality bounds for the encoder, 1 is best and 40 is worst.
const (
	MinQuality = 1
	MaxQuality = 40
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Storage selects and configures the remote object store.
type Storage struct {
	Backend          string
	ConnectionString string
	Container        string
	Dir              string
}

// Capture is the validated configuration of the capture daemon.
type Capture struct {
	Storage Storage

	SegmentDuration time.Duration
	Quality         int
	Width           int
	Height          int

	Source   string
	Device   string
	Rotation int

	QueueSize         int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	StatusAddr string
	LogLevel   string
	LogFormat  string
}

// Download is the configuration of the reconstruction tool.
type Download struct {
	Storage    Storage
	OutputPath string
	LogLevel   string
	LogFormat  string
}

// CaptureOverrides replace environment values, typically from command-line
// flags. Empty fields keep the environment value.
type CaptureOverrides struct {
	Source  string
	Backend string
}

// LoadCapture reads the capture daemon configuration from the environment.
// Call Load first to pick up a .env file.
func LoadCapture() (Capture, error) {
	return LoadCaptureWith(CaptureOverrides{})
}

// LoadCaptureWith is LoadCapture with overrides applied before validation.
func LoadCaptureWith(o CaptureOverrides) (Capture, error) {
	cfg := Capture{
		Storage:           loadStorage(),
		SegmentDuration:   10 * time.Second,
		Quality:           30,
		Source:            strings.ToLower(GetEnv("CAPTURE_SOURCE", SourceFFmpeg)),
		Device:            GetEnv("CAMERA_DEVICE", "/dev/video0"),
		Rotation:          GetEnvInt("CAMERA_ROTATION", 180),
		QueueSize:         GetEnvInt("UPLOAD_QUEUE_SIZE", 0),
		RetryInitialDelay: GetEnvDuration("RETRY_INITIAL_DELAY", time.Second),
		RetryMaxDelay:     GetEnvDuration("RETRY_MAX_DELAY", 64*time.Second),
		StatusAddr:        statusAddr(),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
	}

	// Malformed numbers are errors here, not silent fallbacks.
	if n, ok := os.LookupEnv("VIDEO_LENGTH"); ok && n != "" {
		secs, err := strconv.Atoi(n)
		if err != nil {
			return Capture{}, fmt.Errorf("%w: VIDEO_LENGTH %q is not an integer", ErrInvalid, n)
		}
		cfg.SegmentDuration = time.Duration(secs) * time.Second
	}
	if q, ok := os.LookupEnv("QUALITY"); ok && q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return Capture{}, fmt.Errorf("%w: QUALITY %q is not an integer", ErrInvalid, q)
		}
		cfg.Quality = n
	}

	w, h, err := ParseResolution(GetEnv("RESOLUTION", "1280,720"))
	if err != nil {
		return Capture{}, err
	}
	cfg.Width, cfg.Height = w, h

	if o.Source != "" {
		cfg.Source = strings.ToLower(o.Source)
	}
	if o.Backend != "" {
		cfg.Storage.Backend = strings.ToLower(o.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return Capture{}, err
	}
	return cfg, nil
}

// statusAddr distinguishes an explicitly empty STATUS_ADDR (server disabled)
// from an unset one.
func statusAddr() string {
	if s, ok := os.LookupEnv("STATUS_ADDR"); ok {
		return s
	}
	return ":8080"
}

// Validate checks ranges and cross-field requirements.
func (c Capture) Validate() error {
	if c.SegmentDuration <= 0 {
		return fmt.Errorf("%w: segment duration must be positive, got %v", ErrInvalid, c.SegmentDuration)
	}
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w: quality must be in %d..%d, got %d", ErrInvalid, MinQuality, MaxQuality, c.Quality)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalid, c.Width, c.Height)
	}
	if c.Rotation != 0 && c.Rotation != 180 {
		return fmt.Errorf("%w: rotation must be 0 or 180, got %d", ErrInvalid, c.Rotation)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative, got %d", ErrInvalid, c.QueueSize)
	}
	if c.RetryInitialDelay <= 0 || c.RetryMaxDelay < c.RetryInitialDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 < initial <= max, got %v and %v",
			ErrInvalid, c.RetryInitialDelay, c.RetryMaxDelay)
	}
	switch c.Source {
	case SourceFFmpeg, SourceSynthetic:
	default:
		return fmt.Errorf("%w: unknown capture source %q", ErrInvalid, c.Source)
	}
	return c.Storage.Validate()
}

// LoadDownload reads the reconstruction tool configuration from the environment.
func LoadDownload() (Download, error) {
	cfg := Download{
		Storage:    loadStorage(),
		OutputPath: GetEnv("DOWNLOADED_VIDEO_NAME", "downloaded_video.h264"),
		LogLevel:   GetEnv("LOG_LEVEL", "info"),
		LogFormat:  GetEnv("LOG_FORMAT", "text"),
	}
	if err := cfg.Storage.Validate(); err != nil {
		return Download{}, err
	}
	return cfg, nil
}

func loadStorage() Storage {
	return Storage{
		Backend:          strings.ToLower(GetEnv("STORAGE_BACKEND", BackendAzure)),
		ConnectionString: os.Getenv("BLOB_CONNECTION_STRING"),
		Container:        GetEnv("CONTAINER_NAME", "videos"),
		Dir:              GetEnv("STORAGE_DIR", "./remote"),
	}
}

// Validate checks that the selected backend has what it needs.
func (s Storage) Validate() error {
	switch s.Backend {
	case BackendAzure:
		if s.ConnectionString == "" {
			return fmt.Errorf("%w: BLOB_CONNECTION_STRING is required for the azure backend", ErrInvalid)
		}
	case BackendDir:
		if s.Dir == "" {
			return fmt.Errorf("%w: STORAGE_DIR is required for the dir backend", ErrInvalid)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, s.Backend)
	}
	if s.Container == "" {
		return fmt.Errorf("%w: container name must not be empty", ErrInvalid)
	}
	return nil
}

// ParseResolution parses "width,height" (e.g. "1280,720").
func ParseResolution(s string) (width, height int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: resolution %q must be width,height", ErrInvalid, s)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: resolution width %q: %v", ErrInvalid, parts[0], err)
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: resolution height %q: %v", ErrInvalid, parts[1], err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: resolution %q must be positive", ErrInvalid, s)
	}
	return width, height, nil
}

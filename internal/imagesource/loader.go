package imagesource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	ErrNoSource     = errors.New("no image source provided")
	ErrInvalidData  = errors.New("invalid data url")
	ErrFetchFailed  = errors.New("image fetch failed")
	ErrTooLarge     = errors.New("image exceeds size limit")
	ErrDecodeFailed = errors.New("image decode failed")
)

// Source points at an image. URL may be a data URL or an http(s) URL; Path is
// a local file. When several are set the data URL wins, then the remote URL,
// then the path.
type Source struct {
	Path string
	URL  string
}

func (s Source) String() string {
	switch {
	case isDataURL(s.URL):
		return "data-url"
	case s.URL != "":
		return s.URL
	default:
		return s.Path
	}
}

// Config holds the loader limits
type Config struct {
	Timeout      time.Duration
	MaxBytes     int64
	MaxDimension int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxBytes:     10 << 20,
		MaxDimension: 1920,
	}
}

// Loader fetches and decodes images. Failed loads are never retried.
type Loader struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

func NewLoader(config Config, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger,
	}
}

// Load resolves src and returns the decoded image.
func (l *Loader) Load(ctx context.Context, src Source) (*Image, error) {
	raw, err := l.read(ctx, src)
	if err != nil {
		l.logger.Debug("image load failed", "source", src.String(), "error", err)
		return nil, err
	}

	img, err := Decode(raw, l.config.MaxDimension)
	if err != nil {
		l.logger.Debug("image decode failed", "source", src.String(), "error", err)
		return nil, err
	}

	return img, nil
}

func (l *Loader) read(ctx context.Context, src Source) ([]byte, error) {
	if isDataURL(src.URL) {
		return decodeDataURL(src.URL)
	}

	if src.URL != "" {
		return l.fetch(ctx, src.URL)
	}

	if src.Path != "" {
		return l.readFile(src.Path)
	}

	return nil, ErrNoSource
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: unsupported scheme in %q", ErrFetchFailed, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	limit := l.config.MaxBytes
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}

	return data, nil
}

func isDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image")
}

// decodeDataURL accepts data:image/<fmt>;base64,<payload>.
func decodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, ErrInvalidData
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return raw, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Security
	APIKey string `envconfig:"API_KEY" required:"true"`

	// Databases
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	MongoURI    string `envconfig:"MONGO_URI" required:"true"`
	MongoDBName string `envconfig:"MONGO_DBNAME"`

	// Provider
	ProviderType     string `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel    string `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector string `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	EmbeddingDim     int    `envconfig:"EMBEDDING_DIM" default:"512"`

	// Recognition
	DistanceThreshold   float64 `envconfig:"FACENET_THRESHOLD" default:"0.55"`
	SimilarityThreshold float64 `envconfig:"FACE_SIMILARITY_THRESHOLD" default:"0.45"`
	MaxClassroomImages  int     `envconfig:"MAX_CLASSROOM_IMAGES" default:"4"`
	MinReferences       int     `envconfig:"MIN_REFERENCES_WARNING" default:"1"`
	GlobalFallback      bool    `envconfig:"GLOBAL_FALLBACK" default:"true"`

	// Workers
	ExtractorConcurrency int           `envconfig:"EXTRACTOR_CONCURRENCY" default:"1"`
	ImageWorkers         int           `envconfig:"IMAGE_WORKERS" default:"4"`
	DownloadTimeout      time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"15s"`
	MaxImageDimension    int           `envconfig:"MAX_IMAGE_DIMENSION" default:"1920"`

	// Rate limit on the recognition routes, per client IP. Zero disables it.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks ranges envconfig cannot express.
func (c *Config) Validate() error {
	switch {
	case c.EmbeddingDim <= 0:
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	case c.MaxClassroomImages <= 0:
		return fmt.Errorf("MAX_CLASSROOM_IMAGES must be positive, got %d", c.MaxClassroomImages)
	case c.DistanceThreshold <= 0 || c.DistanceThreshold > 2:
		return fmt.Errorf("FACENET_THRESHOLD must be in (0, 2], got %v", c.DistanceThreshold)
	case c.SimilarityThreshold < -1 || c.SimilarityThreshold >= 1:
		return fmt.Errorf("FACE_SIMILARITY_THRESHOLD must be in [-1, 1), got %v", c.SimilarityThreshold)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

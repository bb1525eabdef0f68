package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

type Config struct {
	// Destination
	VectorBaseURL      string `envconfig:"VECTOR_API_BASE_URL"`
	LlamaBaseURL       string `envconfig:"LLAMA_BASE_URL"`
	OpenAPIPath        string `envconfig:"OPENAPI_PATH" default:"/openapi.json"`
	CollectionID       string `envconfig:"COLLECTION_ID" default:"confluence"`
	EmbeddingModelID   string `envconfig:"EMBEDDING_MODEL_ID" default:"all-MiniLM-L6-v2"`
	VectorDBProvider   string `envconfig:"VECTOR_DB_PROVIDER" default:"sqlite-vec"`
	WeaviateVectorizer string `envconfig:"WEAVIATE_VECTORIZER" default:"text2vec-transformers"`

	// Source
	ConfCloudID     string  `envconfig:"CONF_CLOUD_ID"`
	ConfBaseURL     string  `envconfig:"CONF_BASE_URL"`
	ConfUser        string  `envconfig:"CONF_USER"`
	ConfAPIToken    string  `envconfig:"CONF_API_TOKEN"`
	ConfAccessToken string  `envconfig:"CONF_ACCESS_TOKEN"`
	SourcePageSize  int     `envconfig:"SOURCE_PAGE_SIZE" default:"50"`
	SourceRate      float64 `envconfig:"SOURCE_RATE_PER_SECOND" default:"5"`

	// Selection
	SinceHours       int      `envconfig:"SINCE_HOURS" default:"24"`
	FilterSpaceKeys  []string `envconfig:"FILTER_SPACE_KEYS"`
	FilterSpaceNames []string `envconfig:"FILTER_SPACE_NAMES"`
	FilterLabels     []string `envconfig:"FILTER_LABELS"`
	FilterPageIDs    []string `envconfig:"FILTER_PAGE_IDS"`
	FilterFolderID   string   `envconfig:"FILTER_FOLDER_ID"`

	// Chunking
	ChunkTokens        int `envconfig:"CHUNK_TOKENS" default:"1000"`
	ChunkOverlap       int `envconfig:"CHUNK_OVERLAP" default:"180"`
	MaxChunksPerInsert int `envconfig:"MAX_CHUNKS_PER_INSERT" default:"128"`

	// Timeouts
	ProbeTimeoutSeconds    int `envconfig:"PROBE_TIMEOUT_SECONDS" default:"10"`
	FetchTimeoutSeconds    int `envconfig:"FETCH_TIMEOUT_SECONDS" default:"60"`
	RegisterTimeoutSeconds int `envconfig:"REGISTER_TIMEOUT_SECONDS" default:"30"`
	InsertTimeoutSeconds   int `envconfig:"INSERT_TIMEOUT_SECONDS" default:"90"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8081"`

	// Run ledger and failed batches
	DBEnabled     bool   `envconfig:"DB_ENABLED" default:"false"`
	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"docsync"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"docsync"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Optional side outputs
	NSQDHost       string `envconfig:"NSQD_HOST"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	SentryDSN      string `envconfig:"SENTRY_DSN"`
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.FilterSpaceKeys = cleanList(c.FilterSpaceKeys)
	c.FilterSpaceNames = cleanList(c.FilterSpaceNames)
	c.FilterLabels = cleanList(c.FilterLabels)
	c.FilterPageIDs = cleanList(c.FilterPageIDs)
	c.FilterFolderID = strings.TrimSpace(c.FilterFolderID)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.ChunkTokens <= 0 {
		return fmt.Errorf("%w: CHUNK_TOKENS must be positive, got %d", ErrInvalid, c.ChunkTokens)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTokens {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_TOKENS), got %d", ErrInvalid, c.ChunkOverlap)
	}
	if c.MaxChunksPerInsert <= 0 {
		return fmt.Errorf("%w: MAX_CHUNKS_PER_INSERT must be positive, got %d", ErrInvalid, c.MaxChunksPerInsert)
	}
	if c.SourcePageSize < 1 || c.SourcePageSize > 100 {
		return fmt.Errorf("%w: SOURCE_PAGE_SIZE must be in [1, 100], got %d", ErrInvalid, c.SourcePageSize)
	}
	if c.SinceHours < 0 {
		return fmt.Errorf("%w: SINCE_HOURS must not be negative, got %d", ErrInvalid, c.SinceHours)
	}
	for _, t := range []struct {
		name string
		v    int
	}{
		{"PROBE_TIMEOUT_SECONDS", c.ProbeTimeoutSeconds},
		{"FETCH_TIMEOUT_SECONDS", c.FetchTimeoutSeconds},
		{"REGISTER_TIMEOUT_SECONDS", c.RegisterTimeoutSeconds},
		{"INSERT_TIMEOUT_SECONDS", c.InsertTimeoutSeconds},
	} {
		if t.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, t.name, t.v)
		}
	}
	if c.CollectionID == "" {
		return fmt.Errorf("%w: COLLECTION_ID", ErrMissingRequired)
	}
	if c.DBEnabled {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}

// ValidateVector checks what talking to the destination needs.
func (c *Config) ValidateVector() error {
	if c.VectorAPIBaseURL() == "" {
		return fmt.Errorf("%w: VECTOR_API_BASE_URL or LLAMA_BASE_URL", ErrMissingRequired)
	}
	return nil
}

// ValidateSource checks what reading from Confluence needs.
func (c *Config) ValidateSource() error {
	if c.ConfCloudID == "" && c.ConfBaseURL == "" {
		return fmt.Errorf("%w: CONF_CLOUD_ID or CONF_BASE_URL", ErrMissingRequired)
	}
	if c.ConfAccessToken != "" {
		return nil
	}
	if c.ConfUser == "" {
		return fmt.Errorf("%w: CONF_USER", ErrMissingRequired)
	}
	if c.ConfAPIToken == "" {
		return fmt.Errorf("%w: CONF_API_TOKEN", ErrMissingRequired)
	}
	return nil
}

func (c *Config) VectorAPIBaseURL() string {
	base := c.VectorBaseURL
	if base == "" {
		base = c.LlamaBaseURL
	}
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) RegisterTimeout() time.Duration {
	return time.Duration(c.RegisterTimeoutSeconds) * time.Second
}

func (c *Config) InsertTimeout() time.Duration {
	return time.Duration(c.InsertTimeoutSeconds) * time.Second
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

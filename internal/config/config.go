package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DOCTALK"

// Config is built once in main and handed to every adapter constructor.
// Each key can be set as DOCTALK_<KEY> or plain <KEY>.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":5000"`
	Env        string `envconfig:"ENV" default:"dev"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	IndexRoot    string `envconfig:"INDEX_ROOT" default:"./embeddings"`
	IndexBackend string `envconfig:"INDEX_BACKEND" default:"file"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"2048"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"50"`
	TopK         int    `envconfig:"TOP_K" default:"4"`

	EmbeddingProvider    string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel       string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions  int    `envconfig:"EMBEDDING_DIMENSIONS"`
	EmbeddingBatchSize   int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"100"`
	EmbeddingParallelism int    `envconfig:"EMBEDDING_PARALLELISM" default:"4"`

	ChatProvider    string  `envconfig:"CHAT_PROVIDER" default:"openai"`
	ChatModel       string  `envconfig:"CHAT_MODEL"`
	ChatTemperature float32 `envconfig:"CHAT_TEMPERATURE" default:"0.3"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	AzureEndpoint   string `envconfig:"AZURE_ENDPOINT"`
	AzureAPIKey     string `envconfig:"AZURE_API_KEY"`
	AzureAPIVersion string `envconfig:"AZURE_API_VERSION" default:"2024-06-01"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	VisionModel  string `envconfig:"VISION_MODEL" default:"gemini-1.5-pro"`

	LipSyncURL      string `envconfig:"LIPSYNC_URL"`
	LipSyncAPIKey   string `envconfig:"LIPSYNC_API_KEY"`
	LipSyncVoiceID  string `envconfig:"LIPSYNC_VOICE_ID" default:"EXAVITQu4vr4xnSDxMaL"`
	LipSyncGender   string `envconfig:"LIPSYNC_GENDER" default:"female"`
	LipSyncLanguage string `envconfig:"LIPSYNC_LANGUAGE" default:"en"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	EmbeddingCacheTTL time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"168h"`
	// EmbeddingCacheSize caps the in-memory fallback used when redis is absent
	EmbeddingCacheSize int `envconfig:"EMBEDDING_CACHE_SIZE" default:"5000"`

	QdrantHost   string `envconfig:"QDRANT_HOST"`
	QdrantPort   int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey string `envconfig:"QDRANT_API_KEY"`
	QdrantUseTLS bool   `envconfig:"QDRANT_USE_TLS" default:"false"`

	// SemanticCache reuses answers to near-identical questions, qdrant backend only
	SemanticCache       bool    `envconfig:"SEMANTIC_CACHE" default:"true"`
	SemanticCacheCutoff float32 `envconfig:"SEMANTIC_CACHE_CUTOFF" default:"0.95"`

	ArchiveBackend    string `envconfig:"ARCHIVE_BACKEND" default:"local"`
	UploadRoot        string `envconfig:"UPLOAD_ROOT" default:"./uploads"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3Bucket          string `envconfig:"S3_BUCKET" default:"doctalk-uploads"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	AuthToken          string        `envconfig:"AUTH_TOKEN"`
	RateLimitPerSecond float64       `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
	RateLimitBurst     int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RemoteMaxRetries   uint64        `envconfig:"REMOTE_MAX_RETRIES" default:"0"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	CorsOrigins        []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.IndexBackend = strings.ToLower(strings.TrimSpace(c.IndexBackend))
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.ChatProvider = strings.ToLower(strings.TrimSpace(c.ChatProvider))
	c.ArchiveBackend = strings.ToLower(strings.TrimSpace(c.ArchiveBackend))

	if c.EmbeddingModel == "" {
		c.EmbeddingModel = OpenAIEmbeddingModel
		if c.EmbeddingProvider == ProviderGoogle {
			c.EmbeddingModel = GoogleEmbeddingModel
		}
	}
	if c.ChatModel == "" {
		c.ChatModel = OpenAIChatModel
		if c.ChatProvider == ProviderGemini {
			c.ChatModel = GeminiModelName
		}
	}
}

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderGemini = "gemini"

	BackendFile   = "file"
	BackendQdrant = "qdrant"

	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Validate checks that the selected providers have what they need to start.
func (c *Config) Validate() error {
	var errs []error

	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE"))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("TOP_K must be positive"))
	}
	if c.SemanticCacheCutoff < 0 || c.SemanticCacheCutoff > 1 {
		errs = append(errs, errors.New("SEMANTIC_CACHE_CUTOFF must be between 0 and 1"))
	}
	if c.EmbeddingBatchSize <= 0 {
		errs = append(errs, errors.New("EMBEDDING_BATCH_SIZE must be positive"))
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if !c.HasOpenAI() {
			errs = append(errs, errors.New("OPENAI_API_KEY or AZURE_ENDPOINT/AZURE_API_KEY required for openai embeddings"))
		}
	case ProviderGoogle:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY required for google embeddings"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}

	switch c.ChatProvider {
	case ProviderOpenAI:
		if !c.HasOpenAI() {
			errs = append(errs, errors.New("OPENAI_API_KEY or AZURE_ENDPOINT/AZURE_API_KEY required for openai chat"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY required for gemini chat"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHAT_PROVIDER %q", c.ChatProvider))
	}

	switch c.IndexBackend {
	case BackendFile:
	case BackendQdrant:
		if c.QdrantHost == "" {
			errs = append(errs, errors.New("QDRANT_HOST required for the qdrant index backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend))
	}

	switch c.ArchiveBackend {
	case ArchiveNone, ArchiveLocal:
	case ArchiveS3:
		if !c.HasS3() {
			errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY required for the s3 archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.ArchiveBackend))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != "" || (c.AzureEndpoint != "" && c.AzureAPIKey != "")
}

func (c *Config) HasS3() bool {
	return c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

func (c *Config) HasVision() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) HasSpeech() bool {
	return c.LipSyncURL != ""
}

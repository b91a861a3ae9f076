package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, relative to the working
// directory. CONFIG_PATH overrides it.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Credentials may be
// supplied through environment variables instead of the file.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	AuthorName  string `yaml:"authorName"`
	AuthorEmail string `yaml:"authorEmail"`

	// GoogleClientID enables sign-in; when empty the storefront runs in
	// browse-only mode.
	GoogleClientID string `yaml:"googleClientID"`
	GoogleJWKSURL  string `yaml:"googleJWKSURL"`

	// AIProvider selects the generation backend: "gemini" or "ollama".
	AIProvider      string `yaml:"aiProvider"`
	GeminiAPIKey    string `yaml:"geminiAPIKey"`
	GenerationModel string `yaml:"generationModel"`
	OllamaBaseURL   string `yaml:"ollamaBaseURL"`
	OllamaModel     string `yaml:"ollamaModel"`

	// StorageDir is the local upload directory, used unless MinIO is
	// configured.
	StorageDir     string `yaml:"storageDir"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	// RedisAddr enables Redis-backed sessions and rate limiting; when
	// empty, sessions live in process memory and limiting is disabled.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	SessionTTLMinutes      int   `yaml:"sessionTTLMinutes"`
	MaxUploadBytes         int64 `yaml:"maxUploadBytes"`
	SignInRateLimitPerMin  int   `yaml:"signInRateLimitPerMinute"`
	ChatRateLimitPerMinute int   `yaml:"chatRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("AUTHOR_NAME"); v != "" {
		cfg.AuthorName = v
	}
	if v := os.Getenv("AUTHOR_EMAIL"); v != "" {
		cfg.AuthorEmail = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_JWKS_URL"); v != "" {
		cfg.GoogleJWKSURL = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_GENERATION_MODEL"); v != "" {
		cfg.GenerationModel = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.AIProvider == "" {
		cfg.AIProvider = "gemini"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "gemini-2.5-flash"
	}
	if cfg.OllamaModel == "" {
		cfg.OllamaModel = "llama3.1"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "data/uploads"
	}
	if cfg.SessionTTLMinutes <= 0 {
		cfg.SessionTTLMinutes = 12 * 60
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.AuthorName == "" {
		return errors.New("config: authorName is required (set in config.yaml or AUTHOR_NAME)")
	}
	if cfg.AuthorEmail == "" {
		return errors.New("config: authorEmail is required (set in config.yaml or AUTHOR_EMAIL)")
	}
	switch cfg.AIProvider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("config: unknown aiProvider %q (expected gemini or ollama)", cfg.AIProvider)
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "") {
		return errors.New("config: minio requires minioAccessKey, minioSecretKey and minioBucket")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

const baseConfig = `
port: "8080"
logLevel: "info"
authorName: "Sakila Kumari"
authorEmail: "author@example.com"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AIProvider != "gemini" {
		t.Fatalf("aiProvider = %q", cfg.AIProvider)
	}
	if cfg.GenerationModel != "gemini-2.5-flash" {
		t.Fatalf("generationModel = %q", cfg.GenerationModel)
	}
	if cfg.StorageDir != "data/uploads" {
		t.Fatalf("storageDir = %q", cfg.StorageDir)
	}
	if cfg.SessionTTLMinutes != 12*60 {
		t.Fatalf("sessionTTLMinutes = %d", cfg.SessionTTLMinutes)
	}
	if cfg.MaxUploadBytes != 64<<20 {
		t.Fatalf("maxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTHOR_EMAIL", "env@example.com")
	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("GOOGLE_JWKS_URL", "https://jwks.example.com/certs")
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load(writeConfig(t, baseConfig+`geminiAPIKey: "key-from-file"`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AuthorEmail != "env@example.com" {
		t.Fatalf("authorEmail = %q", cfg.AuthorEmail)
	}
	if cfg.GeminiAPIKey != "key-from-env" {
		t.Fatalf("geminiAPIKey = %q", cfg.GeminiAPIKey)
	}
	if cfg.GoogleJWKSURL != "https://jwks.example.com/certs" {
		t.Fatalf("googleJWKSURL = %q", cfg.GoogleJWKSURL)
	}
	if cfg.AIProvider != "ollama" {
		t.Fatalf("aiProvider = %q", cfg.AIProvider)
	}
	if cfg.OllamaModel != "mistral" {
		t.Fatalf("ollamaModel = %q", cfg.OllamaModel)
	}
	if cfg.RedisAddr != "localhost:6380" {
		t.Fatalf("redisAddr = %q", cfg.RedisAddr)
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("maxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadRequiresAuthor(t *testing.T) {
	_, err := Load(writeConfig(t, `
port: "8080"
authorName: "Sakila Kumari"
`))
	if err == nil || !strings.Contains(err.Error(), "authorEmail") {
		t.Fatalf("err = %v, want authorEmail requirement", err)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	_, err := Load(writeConfig(t, baseConfig+`aiProvider: "openai"`))
	if err == nil || !strings.Contains(err.Error(), "aiProvider") {
		t.Fatalf("err = %v, want aiProvider rejection", err)
	}
}

func TestLoadRequiresCompleteMinioSettings(t *testing.T) {
	_, err := Load(writeConfig(t, baseConfig+`minioEndpoint: "localhost:9000"`))
	if err == nil || !strings.Contains(err.Error(), "minio") {
		t.Fatalf("err = %v, want minio requirement", err)
	}
}

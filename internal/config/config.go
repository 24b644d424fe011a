package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	CORS       CORSConfig
	Upload     UploadConfig
	Classifier ClassifierConfig
	Capture    CaptureConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig holds workbook upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ClassifierConfig holds LLM classification settings with multi-provider
// fallback support.
type ClassifierConfig struct {
	// Legacy flat fields (single-provider setups)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	// MaxTextRows caps how many rows of each sheet are serialized into the
	// prompt.
	MaxTextRows int `mapstructure:"max_text_rows"`

	// Multi-provider fields
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config, falling back to the
// legacy flat fields.
func (c *ClassifierConfig) PrimaryConfig() *ProviderConfig {
	if c.Primary.Provider != "" {
		return &c.Primary
	}
	return &ProviderConfig{
		Provider:     c.Provider,
		APIKey:       c.APIKey,
		DefaultModel: c.DefaultModel,
		TimeoutSecs:  c.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (c *ClassifierConfig) SecondaryConfig() *ProviderConfig {
	if c.Secondary.Provider != "" {
		return &c.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (c *ClassifierConfig) TertiaryConfig() *ProviderConfig {
	if c.Tertiary.Provider != "" {
		return &c.Tertiary
	}
	return nil
}

// CaptureConfig holds page snapshot settings. Capture shells out to
// LibreOffice and pdftoppm, so both binaries must be on the path (or set
// explicitly) for it to work.
type CaptureConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SofficeBin  string `mapstructure:"soffice_bin"`
	PdftoppmBin string `mapstructure:"pdftoppm_bin"`
	MaxPages    int    `mapstructure:"max_pages"`
	DPI         int    `mapstructure:"dpi"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Load reads configuration from environment variables with the SHEETLENS_
// prefix. A local .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SHEETLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:8501,http://127.0.0.1:8501")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 20)

	// Classifier defaults (legacy flat)
	v.SetDefault("classifier.provider", "openai")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.default_model", "gpt-4.1-mini")
	v.SetDefault("classifier.timeout_secs", 120)
	v.SetDefault("classifier.max_text_rows", 20)

	// Classifier primary/secondary/tertiary defaults
	v.SetDefault("classifier.primary.provider", "")
	v.SetDefault("classifier.primary.api_key", "")
	v.SetDefault("classifier.primary.default_model", "")
	v.SetDefault("classifier.primary.timeout_secs", 120)
	v.SetDefault("classifier.secondary.provider", "")
	v.SetDefault("classifier.secondary.api_key", "")
	v.SetDefault("classifier.secondary.default_model", "")
	v.SetDefault("classifier.secondary.timeout_secs", 120)
	v.SetDefault("classifier.tertiary.provider", "")
	v.SetDefault("classifier.tertiary.api_key", "")
	v.SetDefault("classifier.tertiary.default_model", "")
	v.SetDefault("classifier.tertiary.timeout_secs", 120)

	// Capture defaults
	v.SetDefault("capture.enabled", true)
	v.SetDefault("capture.soffice_bin", "soffice")
	v.SetDefault("capture.pdftoppm_bin", "pdftoppm")
	v.SetDefault("capture.max_pages", 3)
	v.SetDefault("capture.dpi", 150)
	v.SetDefault("capture.timeout_secs", 60)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "SHEETLENS_SERVER_PORT",
		"server.read_timeout":     "SHEETLENS_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "SHEETLENS_SERVER_WRITE_TIMEOUT",
		"server.environment":      "SHEETLENS_SERVER_ENVIRONMENT",
		"log.level":               "SHEETLENS_LOG_LEVEL",
		"log.format":              "SHEETLENS_LOG_FORMAT",
		"cors.allowed_origins":    "SHEETLENS_CORS_ALLOWED_ORIGINS",
		"upload.max_file_size_mb": "SHEETLENS_UPLOAD_MAX_FILE_SIZE_MB",

		"classifier.provider":      "SHEETLENS_CLASSIFIER_PROVIDER",
		"classifier.api_key":       "SHEETLENS_CLASSIFIER_API_KEY",
		"classifier.default_model": "SHEETLENS_CLASSIFIER_DEFAULT_MODEL",
		"classifier.timeout_secs":  "SHEETLENS_CLASSIFIER_TIMEOUT_SECS",
		"classifier.max_text_rows": "SHEETLENS_CLASSIFIER_MAX_TEXT_ROWS",

		"classifier.primary.provider":      "SHEETLENS_CLASSIFIER_PRIMARY_PROVIDER",
		"classifier.primary.api_key":       "SHEETLENS_CLASSIFIER_PRIMARY_API_KEY",
		"classifier.primary.default_model": "SHEETLENS_CLASSIFIER_PRIMARY_DEFAULT_MODEL",
		"classifier.primary.timeout_secs":  "SHEETLENS_CLASSIFIER_PRIMARY_TIMEOUT_SECS",

		"classifier.secondary.provider":      "SHEETLENS_CLASSIFIER_SECONDARY_PROVIDER",
		"classifier.secondary.api_key":       "SHEETLENS_CLASSIFIER_SECONDARY_API_KEY",
		"classifier.secondary.default_model": "SHEETLENS_CLASSIFIER_SECONDARY_DEFAULT_MODEL",
		"classifier.secondary.timeout_secs":  "SHEETLENS_CLASSIFIER_SECONDARY_TIMEOUT_SECS",

		"classifier.tertiary.provider":      "SHEETLENS_CLASSIFIER_TERTIARY_PROVIDER",
		"classifier.tertiary.api_key":       "SHEETLENS_CLASSIFIER_TERTIARY_API_KEY",
		"classifier.tertiary.default_model": "SHEETLENS_CLASSIFIER_TERTIARY_DEFAULT_MODEL",
		"classifier.tertiary.timeout_secs":  "SHEETLENS_CLASSIFIER_TERTIARY_TIMEOUT_SECS",

		"capture.enabled":      "SHEETLENS_CAPTURE_ENABLED",
		"capture.soffice_bin":  "SHEETLENS_CAPTURE_SOFFICE_BIN",
		"capture.pdftoppm_bin": "SHEETLENS_CAPTURE_PDFTOPPM_BIN",
		"capture.max_pages":    "SHEETLENS_CAPTURE_MAX_PAGES",
		"capture.dpi":          "SHEETLENS_CAPTURE_DPI",
		"capture.timeout_secs": "SHEETLENS_CAPTURE_TIMEOUT_SECS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if
	// SHEETLENS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SHEETLENS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}

	cfg.Classifier = ClassifierConfig{
		Provider:     v.GetString("classifier.provider"),
		APIKey:       v.GetString("classifier.api_key"),
		DefaultModel: v.GetString("classifier.default_model"),
		TimeoutSecs:  v.GetInt("classifier.timeout_secs"),
		MaxTextRows:  v.GetInt("classifier.max_text_rows"),
		Primary: ProviderConfig{
			Provider:     v.GetString("classifier.primary.provider"),
			APIKey:       v.GetString("classifier.primary.api_key"),
			DefaultModel: v.GetString("classifier.primary.default_model"),
			TimeoutSecs:  v.GetInt("classifier.primary.timeout_secs"),
		},
		Secondary: ProviderConfig{
			Provider:     v.GetString("classifier.secondary.provider"),
			APIKey:       v.GetString("classifier.secondary.api_key"),
			DefaultModel: v.GetString("classifier.secondary.default_model"),
			TimeoutSecs:  v.GetInt("classifier.secondary.timeout_secs"),
		},
		Tertiary: ProviderConfig{
			Provider:     v.GetString("classifier.tertiary.provider"),
			APIKey:       v.GetString("classifier.tertiary.api_key"),
			DefaultModel: v.GetString("classifier.tertiary.default_model"),
			TimeoutSecs:  v.GetInt("classifier.tertiary.timeout_secs"),
		},
	}

	cfg.Capture = CaptureConfig{
		Enabled:     v.GetBool("capture.enabled"),
		SofficeBin:  v.GetString("capture.soffice_bin"),
		PdftoppmBin: v.GetString("capture.pdftoppm_bin"),
		MaxPages:    v.GetInt("capture.max_pages"),
		DPI:         v.GetInt("capture.dpi"),
		TimeoutSecs: v.GetInt("capture.timeout_secs"),
	}

	return cfg, nil
}

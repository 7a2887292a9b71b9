package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at startup
// and passed into component constructors; nothing mutates it afterwards.
type Config struct {
	Database  DatabaseConfig `yaml:"database"`
	Gemini    GeminiConfig   `yaml:"gemini"`
	OCR       OCRConfig      `yaml:"ocr"`
	Cache     CacheConfig    `yaml:"cache"`
	Anchor    AnchorConfig   `yaml:"anchor"`
	Templates TemplateConfig `yaml:"templates"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // "sqlite" or "postgres"
	DSN              string        `yaml:"dsn"`
	MaxConns         int           `yaml:"max_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
}

// GeminiConfig holds the primary extraction engine configuration
type GeminiConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Lenient     bool          `yaml:"lenient"`
}

// OCRConfig holds the fallback engine configuration
type OCRConfig struct {
	Languages []string `yaml:"languages"`
	PSM       int      `yaml:"psm"`
	DPI       int      `yaml:"dpi"`
}

// CacheConfig controls the extraction result cache
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AnchorConfig holds the external anchoring service configuration
type AnchorConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Cluster       string        `yaml:"cluster"`
	WalletAddress string        `yaml:"wallet_address"`
	Timeout       time.Duration `yaml:"timeout"`
}

// TemplateConfig locates the template schema files
type TemplateConfig struct {
	Dir      string `yaml:"dir"`
	FontPath string `yaml:"font_path"` // optional TTF for non-Latin scripts
}

// LoadConfig builds configuration from defaults, an optional YAML file,
// and environment variable overrides (in that order of precedence).
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config")
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, WrapError(err, "parse config")
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "docproof.db",
			MaxConns:        10,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			BaseURL:     "https://generativelanguage.googleapis.com",
			Temperature: 0.0,
			Timeout:     60 * time.Second,
			Lenient:     true,
		},
		OCR: OCRConfig{
			Languages: []string{"nep", "eng"},
			PSM:       7,
			DPI:       300,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Anchor: AnchorConfig{
			Cluster: "devnet",
			Timeout: 30 * time.Second,
		},
		Templates: TemplateConfig{
			Dir: "templates",
		},
	}
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", c.Gemini.BaseURL)
	c.Gemini.Timeout = getEnvAsDuration("GEMINI_TIMEOUT", c.Gemini.Timeout)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)
	c.Anchor.Endpoint = getEnv("ANCHOR_ENDPOINT", c.Anchor.Endpoint)
	c.Anchor.Cluster = getEnv("ANCHOR_CLUSTER", c.Anchor.Cluster)
	c.Anchor.WalletAddress = getEnv("ANCHOR_WALLET", c.Anchor.WalletAddress)
	c.Templates.Dir = getEnv("TEMPLATES_DIR", c.Templates.Dir)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "database DSN is required", ErrInvalidInput)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return NewAppError("CONFIG_ERROR", "database driver must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Templates.Dir == "" {
		return NewAppError("CONFIG_ERROR", "templates dir is required", ErrInvalidInput)
	}
	return nil
}

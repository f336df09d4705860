package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Quota    QuotaConfig    `yaml:"quota"`
	AI       AIConfig       `yaml:"ai"`
	Upload   UploadConfig   `yaml:"upload"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// AuthConfig describes the external identity provider. Tokens are verified
// against the provider's published JWKS, never trusted unverified.
type AuthConfig struct {
	Issuer      string `yaml:"issuer"`
	JWKSURL     string `yaml:"jwks_url"`
	AdminUserID string `yaml:"admin_user_id"`
}

type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit"`
}

type AIConfig struct {
	Provider   string `yaml:"provider"` // gemini, openai, anthropic, ollama
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type UploadConfig struct {
	MaxFileSize  int64    `yaml:"max_file_size"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type LogConfig struct {
	Level         string `yaml:"level"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "nutrilens.db",
		},
		Auth: AuthConfig{
			Issuer:  "https://clerk.nutrilens.app",
			JWKSURL: "https://clerk.nutrilens.app/.well-known/jwks.json",
		},
		Quota: QuotaConfig{
			DailyLimit: 3,
		},
		AI: AIConfig{
			Provider:   "gemini",
			Model:      "gemini-2.0-flash",
			TimeoutSec: 60,
		},
		Upload: UploadConfig{
			MaxFileSize:  10_000_000, // 10MB
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 30,
		},
	}
}

// applyDefaults fills zero values so a config file that omits a section does
// not silently disable the subsystem (e.g. "no uploads allowed").
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Server.Mode == "" {
		c.Server.Mode = def.Server.Mode
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.DSN == "" {
		c.Database.DSN = def.Database.DSN
	}
	if c.AI.Provider == "" {
		c.AI.Provider = def.AI.Provider
	}
	if c.AI.Model == "" {
		c.AI.Model = def.AI.Model
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = def.AI.TimeoutSec
	}
	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = def.Upload.MaxFileSize
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = def.Upload.AllowedTypes
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if issuer := os.Getenv("AUTH_ISSUER"); issuer != "" {
		c.Auth.Issuer = issuer
	}
	if jwksURL := os.Getenv("AUTH_JWKS_URL"); jwksURL != "" {
		c.Auth.JWKSURL = jwksURL
	}
	if adminID := os.Getenv("ADMIN_USER_ID"); adminID != "" {
		c.Auth.AdminUserID = adminID
	}
	if limit := os.Getenv("DAILY_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n >= 0 {
			c.Quota.DailyLimit = n
		}
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.Provider = provider
	}
	if baseURL := os.Getenv("AI_BASE_URL"); baseURL != "" {
		c.AI.BaseURL = baseURL
	}
	if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		c.AI.APIKey = apiKey
	}
	// Kept for compatibility with the original deployment env
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" && c.AI.APIKey == "" {
		c.AI.APIKey = apiKey
	}
	if model := os.Getenv("AI_MODEL"); model != "" {
		c.AI.Model = model
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// IsAllowedType reports whether the content type is on the upload allow-list.
func (c *UploadConfig) IsAllowedType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, t := range c.AllowedTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

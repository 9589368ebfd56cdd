package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	Database      DatabaseConfig   `json:"database"`
	LogConfig     logger.LogConfig `json:"log_config"`
	FileStore     FileStoreConfig  `json:"file_store"`
	OAuth         OAuthConfig      `json:"oauth"`
	Backend       BackendConfig    `json:"backend"`
	Gate          GateConfig       `json:"gate"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	Demo          DemoConfig       `json:"demo"`
	Jobs          JobsConfig       `json:"jobs"`
	MaxUploadMB   int64            `json:"max_upload_mb"`
	// AuthRateLimitMS is the minimum gap between sign-in attempts of one client.
	AuthRateLimitMS int64 `json:"auth_rate_limit_ms"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`

	MaxOpenConns           int   `json:"max_open_conns"`
	MaxIdleConns           int   `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int64 `json:"conn_max_lifetime_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type OAuthProviderConfig struct {
	Enabled      bool     `json:"enabled"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

type OAuthConfig struct {
	Github OAuthProviderConfig `json:"github"`
	Google OAuthProviderConfig `json:"google"`
}

// BackendConfig points at the external AI service (chat_send, chat_stream, upsert_pdf).
type BackendConfig struct {
	Endpoint           string `json:"endpoint"`
	ServiceToken       string `json:"service_token"`
	TimeoutSeconds     int64  `json:"timeout_seconds"`
	IngestAttempts     int    `json:"ingest_attempts"`
	IngestDelaySeconds int64  `json:"ingest_delay_seconds"`
}

type GateConfig struct {
	PagePrefixes     []string `json:"page_prefixes"`
	APIPrefixes      []string `json:"api_prefixes"`
	BypassPaths      []string `json:"bypass_paths"`
	UnauthorizedPath string   `json:"unauthorized_path"`
}

type DemoDocument struct {
	PdfID   string `json:"pdfId"`
	PdfName string `json:"pdfName"`
	PdfURL  string `json:"pdfUrl"`
}

type DemoConfig struct {
	Documents []DemoDocument `json:"documents"`
}

type JobsConfig struct {
	IngestSweepSpec    string `json:"ingest_sweep_spec"`
	IngestStaleMinutes int64  `json:"ingest_stale_minutes"`
}

var (
	defaultPagePrefixes = []string{"/chat", "/dashboard", "/settings", "/documents"}
	defaultAPIPrefixes  = []string{"/api/pdf", "/api/chat", "/api/user", "/api/auth/current-user", "/api/auth/get-token"}
	defaultBypassPaths  = []string{"/api/demo"}
)

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	c.FileStore.Type = strings.ToLower(strings.TrimSpace(c.FileStore.Type))
	if c.FileStore.Type != "local" && c.FileStore.Type != "s3" {
		return fmt.Errorf("file_store.type must be local or s3")
	}
	c.Backend.Endpoint = strings.TrimSuffix(strings.TrimSpace(c.Backend.Endpoint), "/")
	if c.Backend.Endpoint == "" {
		return fmt.Errorf("backend.endpoint is required")
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.Backend.IngestAttempts <= 0 {
		c.Backend.IngestAttempts = 3
	}
	if c.Backend.IngestDelaySeconds <= 0 {
		c.Backend.IngestDelaySeconds = 5
	}
	if len(c.Gate.PagePrefixes) == 0 {
		c.Gate.PagePrefixes = defaultPagePrefixes
	}
	if len(c.Gate.APIPrefixes) == 0 {
		c.Gate.APIPrefixes = defaultAPIPrefixes
	}
	if len(c.Gate.BypassPaths) == 0 {
		c.Gate.BypassPaths = defaultBypassPaths
	}
	if c.Gate.UnauthorizedPath == "" {
		c.Gate.UnauthorizedPath = "/unauthorized"
	}
	if c.Jobs.IngestSweepSpec == "" {
		c.Jobs.IngestSweepSpec = "*/5 * * * *"
	}
	if c.Jobs.IngestStaleMinutes <= 0 {
		c.Jobs.IngestStaleMinutes = 10
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 20
	}
	if c.AuthRateLimitMS <= 0 {
		c.AuthRateLimitMS = 1000
	}
	return nil
}

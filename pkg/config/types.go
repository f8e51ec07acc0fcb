package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Geocoding    GeocodingConfig    `mapstructure:"geocoding"`
	Search       SearchConfig       `mapstructure:"search"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Processing   ProcessingConfig   `mapstructure:"processing"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
	Security     SecurityConfig     `mapstructure:"security"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path                  string        `mapstructure:"path"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	Verbose               bool          `mapstructure:"verbose"`
}

// GeocodingConfig contains settings for the Nominatim geocoding provider
type GeocodingConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"` // requests per second
	Burst        int           `mapstructure:"burst"`
	Limit        int           `mapstructure:"limit"`
	Language     string        `mapstructure:"language"`
	CountryCodes []string      `mapstructure:"country_codes"`
}

// SearchConfig contains incremental search settings
type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	MinQueryLength int           `mapstructure:"min_query_length"`
}

// CacheConfig contains geocoding cache settings
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // memory | redis
	MaxSizeMB  int64         `mapstructure:"max_size_mb"`
	GeocodeTTL time.Duration `mapstructure:"geocode_ttl"`
	RedisURL   string        `mapstructure:"redis_url"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// ProcessingConfig contains background worker settings
type ProcessingConfig struct {
	Workers       int           `mapstructure:"workers"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// RateLimitConfig contains per-client rate limiting settings
type RateLimitConfig struct {
	Enabled   bool                     `mapstructure:"enabled"`
	Endpoints map[string]EndpointLimit `mapstructure:"endpoints"`
}

// EndpointLimit is a requests-per-second budget with a burst allowance
type EndpointLimit struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	CORSMethods    []string `mapstructure:"cors_methods"`
	CORSHeaders    []string `mapstructure:"cors_headers"`
	MaxRequestSize int64    `mapstructure:"max_request_size"`
}

// WebSocketConfig contains planner session settings
type WebSocketConfig struct {
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. ROUTEPLANNER_SERVER_PORT=9090
const EnvPrefix = "ROUTEPLANNER"

var (
	once    sync.Once
	initErr error
)

// DefaultConfigPath is read by Init when no other file is given
const DefaultConfigPath = "./config/settings.yaml"

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	return InitFile(DefaultConfigPath)
}

// InitFile is Init with an explicit settings file. A missing file is not
// an error.
func InitFile(configPath string) error {
	once.Do(func() {
		initErr = load(configPath)
	})

	return initErr
}

// Reset clears viper state so Init can run again (tests only)
func Reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
}

func load(configPath string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPath = filepath.Clean(configPath)
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env vars still apply
		if !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate checks and auto-corrects values read through Viper
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch backend := viper.GetString("cache.backend"); backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache backend: %q", backend)
	}

	if viper.GetString("cache.backend") == "redis" && viper.GetString("cache.redis_url") == "" {
		return fmt.Errorf("cache.redis_url is required for the redis cache backend")
	}

	if viper.GetString("geocoding.user_agent") == "" {
		// Nominatim rejects requests without an identifying agent
		return fmt.Errorf("geocoding.user_agent must not be empty")
	}

	if viper.GetDuration("search.debounce") <= 0 {
		viper.Set("search.debounce", 500*time.Millisecond)
	}
	if viper.GetInt("search.min_query_length") <= 0 {
		viper.Set("search.min_query_length", 3)
	}
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.Backend != "" && c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required for the redis cache backend")
	}

	if c.Search.Debounce <= 0 {
		c.Search.Debounce = 500 * time.Millisecond
	}
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = 3
	}
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/routes.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.verbose", false)

	// Geocoding defaults (public Nominatim allows 1 req/s)
	viper.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocoding.user_agent", "RoutePlannerAPI/1.0")
	viper.SetDefault("geocoding.timeout", 10*time.Second)
	viper.SetDefault("geocoding.rate_limit", 1.0)
	viper.SetDefault("geocoding.burst", 1)
	viper.SetDefault("geocoding.limit", 5)
	viper.SetDefault("geocoding.language", "es")
	viper.SetDefault("geocoding.country_codes", []string{})

	// Incremental search defaults
	viper.SetDefault("search.debounce", 500*time.Millisecond)
	viper.SetDefault("search.min_query_length", 3)

	// Cache defaults
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.max_size_mb", 64)
	viper.SetDefault("cache.geocode_ttl", 24*time.Hour)
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.key_prefix", "routeplanner:")

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 500*time.Millisecond)
	viper.SetDefault("processing.max_retries", 3)
	viper.SetDefault("processing.retention_days", 7)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]any{
		"geocode": map[string]int{"rps": 5, "burst": 10},
		"routes":  map[string]int{"rps": 10, "burst": 20},
		"planner": map[string]int{"rps": 2, "burst": 5},
		"default": map[string]int{"rps": 10, "burst": 20},
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Origin", "Content-Type", "Authorization"})
	viper.SetDefault("security.max_request_size", 1048576)

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30*time.Second)
	viper.SetDefault("websocket.pong_wait", 60*time.Second)
	viper.SetDefault("websocket.write_wait", 10*time.Second)
	viper.SetDefault("websocket.max_message_size", 8192)
	viper.SetDefault("websocket.read_buffer_size", 1024)
	viper.SetDefault("websocket.write_buffer_size", 1024)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/holdings"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Log      LogConfig
	Session  SessionConfig
	Quotes   QuoteConfig
	Holdings HoldingsConfig
	IBKR     IBKRConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means forwarded headers are ignored.
	TrustedProxies []netip.Prefix
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// SessionConfig holds authentication and session configuration.
type SessionConfig struct {
	// Key is a base64 fernet key. When empty a key is generated per process
	// and sessions do not survive a restart.
	Key                string
	TTL                time.Duration
	LoginRatePerMinute int
}

// QuoteConfig holds market data configuration.
type QuoteConfig struct {
	Providers       []string
	TTL             time.Duration
	RatePerSecond   float64
	Concurrency     int
	JSONURL         string // URL template, {symbol} is replaced
	JSONPath        string
	PageURL         string // URL template, {symbol} is replaced
	RefreshSchedule string // cron spec, empty disables the warm-up job
}

// HoldingsConfig holds holdings engine configuration.
type HoldingsConfig struct {
	CostMethod holdings.CostMethod
}

// IBKRConfig holds Interactive Brokers Flex Web Service configuration.
// Fetching is disabled unless both Token and QueryID are set.
type IBKRConfig struct {
	Token   string
	QueryID string
	Broker  string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio_tracker.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			Key: os.Getenv("SESSION_KEY"),
		},
		Quotes: QuoteConfig{
			Providers:       getList("QUOTE_PROVIDERS", []string{"yahoo"}),
			JSONURL:         os.Getenv("QUOTE_JSON_URL"),
			JSONPath:        os.Getenv("QUOTE_JSON_PATH"),
			PageURL:         os.Getenv("QUOTE_PAGE_URL"),
			RefreshSchedule: getEnv("QUOTE_REFRESH_SCHEDULE", "@every 15m"),
		},
		IBKR: IBKRConfig{
			Token:   os.Getenv("IBKR_FLEX_TOKEN"),
			QueryID: os.Getenv("IBKR_FLEX_QUERY_ID"),
			Broker:  getEnv("IBKR_BROKER", "IBKR"),
		},
	}

	var err error
	if config.Server.TrustedProxies, err = getPrefixes("TRUSTED_PROXIES"); err != nil {
		return nil, err
	}
	if config.Session.TTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if config.Session.LoginRatePerMinute, err = getInt("LOGIN_RATE_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if config.Quotes.TTL, err = getDuration("QUOTE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if config.Quotes.RatePerSecond, err = getFloat("QUOTE_RATE_PER_SECOND", 2); err != nil {
		return nil, err
	}
	if config.Quotes.Concurrency, err = getInt("QUOTE_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if config.Holdings.CostMethod, err = holdings.ParseCostMethod(os.Getenv("COST_METHOD")); err != nil {
		return nil, fmt.Errorf("invalid COST_METHOD: %w", err)
	}

	if config.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", config.Session.TTL)
	}
	if config.Quotes.TTL <= 0 {
		return nil, fmt.Errorf("QUOTE_TTL must be positive, got %s", config.Quotes.TTL)
	}
	if config.Quotes.Concurrency < 1 {
		return nil, fmt.Errorf("QUOTE_CONCURRENCY must be at least 1, got %d", config.Quotes.Concurrency)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getList splits a comma separated environment variable, dropping empty items.
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getPrefixes parses a comma separated list of IPs and CIDR ranges.
// A bare IP becomes a single-address prefix.
func getPrefixes(key string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range getList(key, nil) {
		if addr, err := netip.ParseAddr(item); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(item)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

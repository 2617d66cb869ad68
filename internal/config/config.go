package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Booking  BookingConfig
	Catalog  CatalogConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // development, production
	LogLevel    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
}

type BookingConfig struct {
	RateLimit       int
	RateWindow      time.Duration
	IdempotencyTTL  time.Duration
	ReceiptAttempts int
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// DSN builds the connection string for pgxpool.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// New loads configuration from the environment. A .env file in the working
// directory is read first when present.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func load() (*Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.Server.Host = envString("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	cfg.Server.Environment = envString("ENVIRONMENT", "development")
	cfg.Server.LogLevel = envString("LOG_LEVEL", "info")

	cfg.Postgres.Host = envString("POSTGRES_HOST", "localhost")
	if cfg.Postgres.Port, err = envInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	cfg.Postgres.User = os.Getenv("POSTGRES_USER")
	cfg.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	cfg.Postgres.Name = os.Getenv("POSTGRES_DB")
	cfg.Postgres.SSLMode = envString("POSTGRES_SSLMODE", "disable")
	if cfg.Postgres.MaxConns, err = envInt("POSTGRES_MAX_CONNS", 10); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = envString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.Issuer = envString("JWT_ISSUER", "dirabus")
	if cfg.JWT.AccessTTL, err = envDuration("JWT_ACCESS_TTL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.Booking.RateLimit, err = envInt("BOOKING_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.Booking.RateWindow, err = envDuration("BOOKING_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Booking.IdempotencyTTL, err = envDuration("BOOKING_IDEMPOTENCY_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Booking.ReceiptAttempts, err = envInt("BOOKING_RECEIPT_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	if cfg.Catalog.CacheTTL, err = envDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.CORS.AllowedOrigins = envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Postgres.User == "":
		return fmt.Errorf("missing POSTGRES_USER")
	case c.Postgres.Password == "":
		return fmt.Errorf("missing POSTGRES_PASSWORD")
	case c.Postgres.Name == "":
		return fmt.Errorf("missing POSTGRES_DB")
	case c.JWT.Secret == "":
		return fmt.Errorf("missing JWT_SECRET")
	case c.IsProduction() && len(c.JWT.Secret) < 32:
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	case c.Booking.ReceiptAttempts < 1:
		return fmt.Errorf("BOOKING_RECEIPT_ATTEMPTS must be positive")
	}

	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// Package config loads service configuration.
//
// Values come from an optional YAML file, then a .env file, then process
// environment variables. Later sources override earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the gorm driver.
type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// SeedRewards inserts the default catalog on migrate.
	SeedRewards bool `yaml:"seed_rewards"`
}

// RedisConfig configures the result cache. An empty address disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuthConfig configures JWT validation.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTAudience string `yaml:"jwt_audience"`
}

// AIConfig configures the generative model.
type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	// Timeout bounds one model call. Zero leaves the call unbounded.
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig configures photo storage. An empty bucket keeps photos
// inline as data URIs.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

// RateLimitConfig bounds verification requests per user.
type RateLimitConfig struct {
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			DSN:         "host=postgres user=postgres password=postgres dbname=aitrashrank port=5432 sslmode=disable",
			SeedRewards: true,
		},
		Redis: RedisConfig{Addr: "redis:6379", TTL: 24 * time.Hour},
		AI:    AIConfig{Model: "gemini-1.5-flash"},
		Storage: StorageConfig{
			Region: "ap-southeast-1",
		},
		RateLimit: RateLimitConfig{PerMinute: 6, Burst: 3},
		LogLevel:  "info",
	}
}

// Load reads path (if non-empty) and envFile (if it exists), then applies
// environment overrides and validates the result.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("HTTP_ADDR", &cfg.Server.HTTPAddr)
	str("GRPC_ADDR", &cfg.Server.GRPCAddr)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("JWT_AUDIENCE", &cfg.Auth.JWTAudience)
	str("GEMINI_API_KEY", &cfg.AI.APIKey)
	str("GEMINI_MODEL", &cfg.AI.Model)
	str("GEMINI_BASE_URL", &cfg.AI.BaseURL)
	str("S3_BUCKET", &cfg.Storage.Bucket)
	str("S3_REGION", &cfg.Storage.Region)
	str("S3_ENDPOINT", &cfg.Storage.Endpoint)
	str("S3_ACCESS_KEY", &cfg.Storage.AccessKey)
	str("S3_SECRET_KEY", &cfg.Storage.SecretKey)
	str("S3_PUBLIC_URL", &cfg.Storage.PublicURL)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := lookup("RATE_LIMIT_PER_MINUTE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.RateLimit.PerMinute = f
	}
	if v, ok := lookup("AI_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AI_TIMEOUT: %w", err)
		}
		cfg.AI.Timeout = d
	}
	return nil
}

// Validate checks required values.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

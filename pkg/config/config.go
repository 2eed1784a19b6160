package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string
	Env  string

	FirebaseCredentialsPath string
	FirebaseStorageBucket   string

	// StoreDriver selects the system of record: postgres, mongo or memory
	StoreDriver     string
	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	// AuthProvider is jwt or firebase
	AuthProvider string
	JWTSecret    string

	PostRateLimitTTL    time.Duration
	CommentRateLimitTTL time.Duration
	ListingCacheKey     string
	DeleteRetries       int
	UploadURLExpiry     time.Duration
	AllowedImageTypes   []string
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE
type fileConfig struct {
	RateLimits struct {
		Post    string `yaml:"post"`
		Comment string `yaml:"comment"`
	} `yaml:"rate_limits"`
	Cache struct {
		ListingKey string `yaml:"listing_key"`
	} `yaml:"cache"`
	Deletes struct {
		Retries int `yaml:"retries"`
	} `yaml:"deletes"`
	Uploads struct {
		URLExpiry    string   `yaml:"url_expiry"`
		AllowedTypes []string `yaml:"allowed_types"`
	} `yaml:"uploads"`
}

// Load reads configuration from the environment (and .env), then applies the
// YAML file named by CONFIG_FILE on top of it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		NatsURL:                 getEnv("NATS_URL", ""),
		AuthProvider:            strings.ToLower(getEnv("AUTH_PROVIDER", "jwt")),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		ListingCacheKey:         getEnv("LISTING_CACHE_KEY", "ALL_POSTS"),
		AllowedImageTypes:       []string{"image/jpg", "image/jpeg", "image/png", "image/webp"},
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.DeleteRetries, err = getEnvInt("DELETE_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.PostRateLimitTTL, err = getEnvDuration("POST_RATE_LIMIT_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CommentRateLimitTTL, err = getEnvDuration("COMMENT_RATE_LIMIT_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.UploadURLExpiry, err = getEnvDuration("UPLOAD_URL_EXPIRY", 15*time.Minute); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fc.RateLimits.Post, &c.PostRateLimitTTL},
		{fc.RateLimits.Comment, &c.CommentRateLimitTTL},
		{fc.Uploads.URLExpiry, &c.UploadURLExpiry},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		*d.dst = parsed
	}

	if fc.Cache.ListingKey != "" {
		c.ListingCacheKey = fc.Cache.ListingKey
	}
	if fc.Deletes.Retries > 0 {
		c.DeleteRetries = fc.Deletes.Retries
	}
	if len(fc.Uploads.AllowedTypes) > 0 {
		c.AllowedImageTypes = fc.Uploads.AllowedTypes
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.PostgresConnStr == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
	case "firebase":
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH environment variable not set")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.DeleteRetries < 1 {
		return fmt.Errorf("DELETE_RETRIES must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

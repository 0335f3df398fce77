package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server settings read from the environment
type Config struct {
	MongoURI string
	MongoDB  string
	RedisURI string
	Port     string

	JWTSecret        string
	OperatorUsername string
	OperatorPassword string

	CORS CORSConfig

	FormCacheTTL    time.Duration
	ResponseLockTTL time.Duration
	MaxUploadBytes  int64
}

// CORSConfig is applied by the router's CORS middleware
type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// Load reads the configuration, falling back to local development defaults
func Load() *Config {
	return &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "formgate"),
		RedisURI: getEnv("REDIS_URI", "localhost:6379"),
		Port:     getEnv("PORT", "8080"),

		JWTSecret:        getEnv("JWT_SECRET", "formgate-dev-secret-change-in-prod"),
		OperatorUsername: getEnv("OPERATOR_USERNAME", "operator"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", "operator123"),

		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type, Authorization"),
		},

		FormCacheTTL:    getDuration("FORM_CACHE_TTL", 10*time.Minute),
		ResponseLockTTL: getDuration("RESPONSE_LOCK_TTL", 5*time.Second),
		MaxUploadBytes:  getInt64("MAX_UPLOAD_BYTES", 10<<20),
	}
}

// RedisAddr strips an optional redis:// scheme from RedisURI
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURI, "redis://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getInt64(key string, defaultVal int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

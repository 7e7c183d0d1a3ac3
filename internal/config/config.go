package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Geocode   GeocodeConfig
	Images    ImagesConfig
	Server    ServerConfig
	Snowflake SnowflakeConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	PrimaryDSN      string
	ReplicaDSNs     []string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	QueryTimeout    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type GeocodeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ImagesConfig struct {
	Backend        string
	Dir            string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadBytes int64
}

type ServerConfig struct {
	HTTPPort        string
	GRPCHealthPort  string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type SnowflakeConfig struct {
	DatacenterID int64
	WorkerID     int64
}

type CacheConfig struct {
	L1Capacity int
	L2TTL      time.Duration
}

type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	TrustProxy bool
}

func Load() (*Config, error) {
	// Load .env if it exists (local dev), ignore if not
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			PrimaryDSN:      getEnv("DB_PRIMARY_DSN", ""),
			ReplicaDSNs:     getEnvAsList("DB_REPLICA1_DSN", "DB_REPLICA2_DSN", "DB_REPLICA3_DSN"),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvAsDuration("JWT_TTL", time.Hour),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Geocode: GeocodeConfig{
			BaseURL: getEnv("GEOCODE_BASE_URL", "https://us1.locationiq.com"),
			APIKey:  getEnv("GEOCODE_API_KEY", ""),
			Timeout: getEnvAsDuration("GEOCODE_TIMEOUT", 5*time.Second),
		},
		Images: ImagesConfig{
			Backend:        getEnv("IMAGE_BACKEND", "local"),
			Dir:            getEnv("IMAGE_DIR", "uploads/images"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "places"),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			MaxUploadBytes: int64(getEnvAsInt("IMAGE_MAX_UPLOAD_BYTES", 5<<20)),
		},
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "5000"),
			GRPCHealthPort:  getEnv("GRPC_HEALTH_PORT", "50060"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			L1Capacity: getEnvAsInt("CACHE_L1_CAPACITY", 10000),
			L2TTL:      getEnvAsDuration("CACHE_L2_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests:   getEnvAsInt("RATE_LIMIT_REQUESTS", 20),
			Window:     getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			TrustProxy: getEnvAsBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		Snowflake: SnowflakeConfig{
			DatacenterID: int64(getEnvAsInt("SNOWFLAKE_DATACENTER_ID", 1)),
			WorkerID:     int64(getEnvAsInt("SNOWFLAKE_WORKER_ID", 1)),
		},
	}

	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.PrimaryDSN == "" {
		return errors.New("DB_PRIMARY_DSN is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Images.Backend != "local" && c.Images.Backend != "minio" {
		return errors.New("IMAGE_BACKEND must be 'local' or 'minio'")
	}
	return nil
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

// getEnvAsList collects the non-empty values of keys, in order.
func getEnvAsList(keys ...string) []string {
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			values = append(values, value)
		}
	}
	return values
}

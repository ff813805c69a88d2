package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store drivers.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env  string
	Port int

	Backend BackendConfig
	Session SessionConfig
	State   StateConfig
	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Views   ViewsConfig
	Metrics MetricsConfig
}

// BackendConfig points the console at the course-management API.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	HealthURL string
}

// SessionConfig controls the console session cookie and token store.
type SessionConfig struct {
	Store             string
	CookieName        string
	TTL               time.Duration
	SecureCookie      bool
	DecodeTokenClaims bool
}

// StateConfig tunes the in-memory per-session state registry.
type StateConfig struct {
	SweepSpec string
	IdleTTL   time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ViewsConfig holds list sizes used by the views.
type ViewsConfig struct {
	PageSize       int
	LookupPageSize int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	baseURL := strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/")
	cfg.Backend = BackendConfig{
		BaseURL:   baseURL,
		Timeout:   parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		HealthURL: v.GetString("BACKEND_HEALTH_URL"),
	}

	cfg.Session = SessionConfig{
		Store:             strings.ToLower(v.GetString("SESSION_STORE")),
		CookieName:        v.GetString("SESSION_COOKIE_NAME"),
		TTL:               parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		SecureCookie:      v.GetBool("SESSION_SECURE_COOKIE"),
		DecodeTokenClaims: v.GetBool("SESSION_DECODE_TOKEN_CLAIMS"),
	}

	cfg.State = StateConfig{
		SweepSpec: v.GetString("STATE_SWEEP_SPEC"),
		IdleTTL:   parseDuration(v.GetString("STATE_IDLE_TTL"), 2*time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Views = ViewsConfig{
		PageSize:       positiveOr(v.GetInt("PAGE_SIZE"), 10),
		LookupPageSize: positiveOr(v.GetInt("LOOKUP_PAGE_SIZE"), 100),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_HEALTH_URL", "")

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_COOKIE_NAME", "console_session")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_SECURE_COOKIE", false)
	v.SetDefault("SESSION_DECODE_TOKEN_CLAIMS", false)

	v.SetDefault("STATE_SWEEP_SPEC", "@every 5m")
	v.SetDefault("STATE_IDLE_TTL", "2h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("LOOKUP_PAGE_SIZE", 100)
	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

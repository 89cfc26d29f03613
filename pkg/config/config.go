package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Moodle     MoodleConfig
	StatsCache StatsCacheConfig
	Tracing    TracingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
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

// MoodleConfig describes the Moodle database the assessment queries read from.
type MoodleConfig struct {
	TablePrefix string
}

// StatPolicy declares how one statistic family is cached.
type StatPolicy struct {
	KeyPrefix  string
	StaleAfter time.Duration
}

// StatsCacheConfig governs the per-user statistics cache.
type StatsCacheConfig struct {
	Enabled       bool
	Singleflight  bool
	Retention     time.Duration
	DueSoon       StatPolicy
	Summary       StatPolicy
	SummaryByType StatPolicy
}

// TracingConfig toggles OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	Version      string
	SampleRatio  float64
	OTLPEndpoint string
	OTLPInsecure bool
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
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
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

	cfg.Moodle = MoodleConfig{TablePrefix: v.GetString("MOODLE_TABLE_PREFIX")}

	cfg.StatsCache = StatsCacheConfig{
		Enabled:      v.GetBool("ENABLE_STATS_CACHE"),
		Singleflight: v.GetBool("STATS_CACHE_SINGLEFLIGHT"),
		Retention:    parseDuration(v.GetString("STATS_CACHE_RETENTION"), 24*time.Hour),
		DueSoon: StatPolicy{
			KeyPrefix:  v.GetString("DUE_SOON_CACHE_PREFIX"),
			StaleAfter: parseDuration(v.GetString("DUE_SOON_STALE_AFTER"), 5*time.Minute),
		},
		Summary: StatPolicy{
			KeyPrefix:  v.GetString("SUMMARY_CACHE_PREFIX"),
			StaleAfter: parseDuration(v.GetString("SUMMARY_STALE_AFTER"), 30*time.Minute),
		},
		SummaryByType: StatPolicy{
			KeyPrefix:  v.GetString("SUMMARY_BY_TYPE_CACHE_PREFIX"),
			StaleAfter: parseDuration(v.GetString("SUMMARY_BY_TYPE_STALE_AFTER"), 2*time.Hour),
		},
	}

	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		Version:      v.GetString("SERVICE_VERSION"),
		SampleRatio:  parseRatio(v.GetString("OTEL_SAMPLER_RATIO"), 0.1),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "moodle")
	v.SetDefault("DB_PASSWORD", "moodle")
	v.SetDefault("DB_NAME", "moodle")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MOODLE_TABLE_PREFIX", "mdl_")

	v.SetDefault("ENABLE_STATS_CACHE", true)
	v.SetDefault("STATS_CACHE_SINGLEFLIGHT", true)
	v.SetDefault("STATS_CACHE_RETENTION", "24h")
	v.SetDefault("DUE_SOON_CACHE_PREFIX", "studentid_duesoon:")
	v.SetDefault("DUE_SOON_STALE_AFTER", "5m")
	v.SetDefault("SUMMARY_CACHE_PREFIX", "studentid_summary:")
	v.SetDefault("SUMMARY_STALE_AFTER", "30m")
	v.SetDefault("SUMMARY_BY_TYPE_CACHE_PREFIX", "studentid_summarybytype:")
	v.SetDefault("SUMMARY_BY_TYPE_STALE_AFTER", "2h")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "assessment-status-api")
	v.SetDefault("SERVICE_VERSION", "0.1.0")
	v.SetDefault("OTEL_SAMPLER_RATIO", "0.1")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func parseRatio(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
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

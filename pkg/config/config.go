package config

import (
	"errors"
	"os"
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

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Scheduler   SchedulerConfig
	ResultCache ResultCacheConfig
	Persistence PersistenceConfig
	Export      ExportConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the default exam calendar and search budgets.
type SchedulerConfig struct {
	NumDays       int
	SlotsPerDay   int
	SlotMinutes   int
	TimeLimit     time.Duration
	MaxIterations int
	PollEvery     int
	Workers       int
	JobTTL        time.Duration
}

// ResultCacheConfig toggles caching of solve results by input fingerprint.
type ResultCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PersistenceConfig gates the Postgres-backed dataset and schedule stores.
type PersistenceConfig struct {
	Enabled bool
}

// ExportConfig locates stored export files and signs their download links.
type ExportConfig struct {
	Dir           string
	LinkTTL       time.Duration
	SigningSecret string
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		NumDays:       v.GetInt("SCHEDULER_NUM_DAYS"),
		SlotsPerDay:   v.GetInt("SCHEDULER_SLOTS_PER_DAY"),
		SlotMinutes:   v.GetInt("SCHEDULER_SLOT_MINUTES"),
		TimeLimit:     parseDuration(v.GetString("SCHEDULER_TIME_LIMIT"), 300*time.Second),
		MaxIterations: v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		PollEvery:     v.GetInt("SCHEDULER_POLL_EVERY"),
		Workers:       v.GetInt("SCHEDULER_WORKERS"),
		JobTTL:        parseDuration(v.GetString("SCHEDULER_JOB_TTL"), 30*time.Minute),
	}

	cfg.ResultCache = ResultCacheConfig{
		Enabled: v.GetBool("ENABLE_RESULT_CACHE"),
		TTL:     parseDuration(v.GetString("RESULT_CACHE_TTL"), time.Hour),
	}

	cfg.Persistence = PersistenceConfig{
		Enabled: v.GetBool("ENABLE_PERSISTENCE"),
	}

	cfg.Export = ExportConfig{
		Dir:           v.GetString("EXPORT_DIR"),
		LinkTTL:       parseDuration(v.GetString("EXPORT_LINK_TTL"), time.Hour),
		SigningSecret: v.GetString("EXPORT_SIGNING_SECRET"),
	}
	if cfg.Export.SigningSecret == "" {
		cfg.Export.SigningSecret = cfg.JWT.Secret
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exam_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_NUM_DAYS", 7)
	v.SetDefault("SCHEDULER_SLOTS_PER_DAY", 5)
	v.SetDefault("SCHEDULER_SLOT_MINUTES", 60)
	v.SetDefault("SCHEDULER_TIME_LIMIT", "300s")
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 2000000)
	v.SetDefault("SCHEDULER_POLL_EVERY", 10)
	v.SetDefault("SCHEDULER_WORKERS", 1)
	v.SetDefault("SCHEDULER_JOB_TTL", "30m")

	v.SetDefault("ENABLE_RESULT_CACHE", false)
	v.SetDefault("RESULT_CACHE_TTL", "1h")
	v.SetDefault("ENABLE_PERSISTENCE", false)

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_LINK_TTL", "1h")
	v.SetDefault("EXPORT_SIGNING_SECRET", "")
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

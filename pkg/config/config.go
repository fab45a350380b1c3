package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Default classification thresholds used when configuration is absent or invalid.
const (
	DefaultRiskUpperThreshold = 75
	DefaultRiskLowerThreshold = 60
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Risk       RiskConfig
	Alerts     AlertsConfig
	Schedule   ScheduleConfig
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
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig tunes check-in token lifetimes and status boundaries.
type AttendanceConfig struct {
	LateThreshold        time.Duration
	DefaultTokenValidity time.Duration
	MaxTokenValidity     time.Duration
}

// RiskConfig carries classification thresholds and the trailing window.
// Upper >= Lower must hold; when the pair is absent or inconsistent the
// classifier falls back to the documented defaults (75/60) instead of
// failing requests.
type RiskConfig struct {
	UpperThreshold int
	LowerThreshold int
	WindowDays     int
	CountUnmarked  bool
}

// AlertsConfig governs tier snapshot retention for transition detection.
type AlertsConfig struct {
	SnapshotTTL time.Duration
}

// ScheduleConfig tunes reconciled schedule caching.
type ScheduleConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
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
		if !errors.As(err, &notFound) {
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
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attendance = AttendanceConfig{
		LateThreshold:        parseDuration(v.GetString("ATTENDANCE_LATE_THRESHOLD"), 15*time.Minute),
		DefaultTokenValidity: parseDuration(v.GetString("TOKEN_VALIDITY"), 5*time.Minute),
		MaxTokenValidity:     parseDuration(v.GetString("TOKEN_MAX_VALIDITY"), time.Hour),
	}

	cfg.Risk = RiskConfig{
		UpperThreshold: v.GetInt("RISK_UPPER_THRESHOLD"),
		LowerThreshold: v.GetInt("RISK_LOWER_THRESHOLD"),
		WindowDays:     v.GetInt("RISK_WINDOW_DAYS"),
		CountUnmarked:  v.GetBool("RISK_COUNT_UNMARKED"),
	}

	cfg.Alerts = AlertsConfig{
		SnapshotTTL: parseDuration(v.GetString("ALERT_SNAPSHOT_TTL"), 7*24*time.Hour),
	}

	cfg.Schedule = ScheduleConfig{
		CacheEnabled: v.GetBool("ENABLE_SCHEDULE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), time.Minute),
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
	v.SetDefault("DB_NAME", "attendance_core")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "attendance-core")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTENDANCE_LATE_THRESHOLD", "15m")
	v.SetDefault("TOKEN_VALIDITY", "5m")
	v.SetDefault("TOKEN_MAX_VALIDITY", "1h")

	v.SetDefault("RISK_UPPER_THRESHOLD", DefaultRiskUpperThreshold)
	v.SetDefault("RISK_LOWER_THRESHOLD", DefaultRiskLowerThreshold)
	v.SetDefault("RISK_WINDOW_DAYS", 30)
	v.SetDefault("RISK_COUNT_UNMARKED", true)

	v.SetDefault("ALERT_SNAPSHOT_TTL", "168h")

	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "1m")
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

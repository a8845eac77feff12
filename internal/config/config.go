package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Source   SourceConfig
	Ingest   IngestConfig
	LogLevel slog.Level
}

type ServerConfig struct {
	Env            string
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

type UploadConfig struct {
	MaxFileSize int64 // bytes
}

// SourceConfig describes where the weekly spreadsheet is downloaded from.
type SourceConfig struct {
	BaseURL         string
	FileNames       []string // may contain {year}
	FetchTimeout    time.Duration
	MaxRetries      int
	RetryBaseWait   time.Duration
	RefreshInterval time.Duration
	StaleAfter      time.Duration
	UserAgent       string
	CachePath       string // last good download; empty disables the cache
}

type IngestConfig struct {
	HeaderScanRows int
	MinAnchors     int
	Dedup          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "fuelmetrics"),
			Password: getEnv("DB_PASSWORD", "fuelmetrics_dev_password"),
			DBName:   getEnv("DB_NAME", "fuelmetrics"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int(getIntEnv("DB_MAX_CONNS", 10)),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:      getEnv("JWT_ISSUER", "fuelmetrics"),
			ExpiryHours: getIntEnv("JWT_EXPIRY_HOURS", 24),
		},
		Upload: UploadConfig{
			MaxFileSize: int64(getIntEnv("UPLOAD_MAX_SIZE_MB", 50)) * 1024 * 1024,
		},
		Source: SourceConfig{
			BaseURL: getEnv("ANP_BASE_URL",
				"https://www.gov.br/anp/pt-br/assuntos/precos-e-defesa-da-concorrencia/precos/arquivos-lpc"),
			FileNames: getListEnv("ANP_FILE_NAMES", []string{
				"{year}/resumo_semanal_lpc_{year}.xlsx",
				"{year}/semanal-municipios-{year}.xlsx",
			}),
			FetchTimeout:    getDurationEnv("ANP_FETCH_TIMEOUT", 60*time.Second),
			MaxRetries:      getIntEnv("ANP_MAX_RETRIES", 3),
			RetryBaseWait:   getDurationEnv("ANP_RETRY_BASE_WAIT", 2*time.Second),
			RefreshInterval: getDurationEnv("ANP_REFRESH_INTERVAL", 168*time.Hour),
			StaleAfter:      getDurationEnv("DATA_STALE_AFTER", 24*time.Hour),
			UserAgent:       getEnv("ANP_USER_AGENT", "fuelmetrics-api/1.0"),
			CachePath:       getEnv("ANP_CACHE_PATH", ""),
		},
		Ingest: IngestConfig{
			HeaderScanRows: getIntEnv("INGEST_HEADER_SCAN_ROWS", 30),
			MinAnchors:     getIntEnv("INGEST_MIN_ANCHORS", 2),
			Dedup:          getEnv("INGEST_DEDUP", "lowest_price"),
		},
		LogLevel: getLevelEnv("LOG_LEVEL", slog.LevelInfo),
	}
}

// DSN returns the Postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getLevelEnv(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			return level
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort               string
	ServerReadHeaderTimeout  time.Duration
	ServerWriteTimeout       time.Duration
	ServerIdleTimeout        time.Duration
	RequestTimeout           time.Duration
	StreamMaxDuration        time.Duration
	StreamIdleTimeout        time.Duration
	StorageRoot              string
	PublicPrefix             string
	MaxUploadSize            int64
	AllowedMIMETypes         []string
	ThumbnailMaxDimension    int
	ThumbnailMaxBytes        int
	ThumbnailQuality         int
	ThumbnailFallbackQuality int
	CORSOrigins              []string
	RateLimitRPM             int
	LogLevel                 slog.Level
	Backup                   BackupConfig
}

// BackupConfig is the optional off-site copy target. An empty Bucket disables it.
type BackupConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	Timeout         time.Duration
}

func (b BackupConfig) Enabled() bool {
	return strings.TrimSpace(b.Bucket) != ""
}

var defaultAllowedMIMETypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

func Load() (*Config, error) {
	_ = godotenv.Load()

	allowed := splitCSV(os.Getenv("ALLOWED_MIME_TYPES"))
	if len(allowed) == 0 {
		allowed = append([]string(nil), defaultAllowedMIMETypes...)
	}

	cfg := &Config{
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout:  getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:       getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:        getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:           getDuration("REQUEST_TIMEOUT", 30*time.Second),
		StreamMaxDuration:        getDuration("STREAM_MAX_DURATION", 10*time.Minute),
		StreamIdleTimeout:        getDuration("STREAM_IDLE_TIMEOUT", 30*time.Second),
		StorageRoot:              getEnv("STORAGE_ROOT", "./images"),
		PublicPrefix:             normalizePrefix(getEnv("PUBLIC_PREFIX", "/images")),
		MaxUploadSize:            getInt64("MAX_UPLOAD_SIZE", 10*1024*1024),
		AllowedMIMETypes:         allowed,
		ThumbnailMaxDimension:    getInt("THUMBNAIL_MAX_DIMENSION", 150),
		ThumbnailMaxBytes:        getInt("THUMBNAIL_MAX_BYTES", 30*1024),
		ThumbnailQuality:         getInt("THUMBNAIL_QUALITY", 85),
		ThumbnailFallbackQuality: getInt("THUMBNAIL_FALLBACK_QUALITY", 60),
		CORSOrigins:              splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:             getInt("RATE_LIMIT_RPM", 300),
		LogLevel:                 ParseLevel(os.Getenv("LOG_LEVEL")),
		Backup: BackupConfig{
			Bucket:          strings.TrimSpace(os.Getenv("BACKUP_S3_BUCKET")),
			Region:          getEnv("BACKUP_S3_REGION", "us-east-1"),
			Endpoint:        strings.TrimSpace(os.Getenv("BACKUP_S3_ENDPOINT")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("BACKUP_S3_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(os.Getenv("BACKUP_S3_SECRET_ACCESS_KEY")),
			Prefix:          strings.Trim(strings.TrimSpace(os.Getenv("BACKUP_S3_PREFIX")), "/"),
			Timeout:         getDuration("BACKUP_TIMEOUT", 60*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if strings.TrimSpace(c.StorageRoot) == "" {
		return fmt.Errorf("STORAGE_ROOT cannot be empty")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.ThumbnailMaxDimension <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_DIMENSION must be positive")
	}

	if c.ThumbnailMaxBytes <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_BYTES must be positive")
	}

	if !validQuality(c.ThumbnailQuality) || !validQuality(c.ThumbnailFallbackQuality) {
		return fmt.Errorf("THUMBNAIL_QUALITY and THUMBNAIL_FALLBACK_QUALITY must be within 1..100")
	}

	if c.PublicPrefix == "/" || strings.HasPrefix(c.PublicPrefix, "/api") {
		return fmt.Errorf("PUBLIC_PREFIX %q collides with the API routes", c.PublicPrefix)
	}

	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("BACKUP_S3_ACCESS_KEY_ID and BACKUP_S3_SECRET_ACCESS_KEY must be set together")
	}

	return nil
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validQuality(q int) bool {
	return q >= 1 && q <= 100
}

func normalizePrefix(raw string) string {
	trimmed := "/" + strings.Trim(strings.TrimSpace(raw), "/")
	return trimmed
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}

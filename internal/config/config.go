package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig holds the upload pipeline settings.
type UploadConfig struct {
	Dir              string
	ThumbnailDirName string
	MaxBodyBytes     int
	ThumbnailWidth   int
	ThumbnailHeight  int
	OptimizeQuality  int
	NamingStrategy   string
}

// ThumbnailDir is the thumbnail directory, nested inside the upload root.
func (u UploadConfig) ThumbnailDir() string {
	return filepath.Join(u.Dir, u.ThumbnailDirName)
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables, optionally layered over a config file named by CONFIG_FILE.
type AppConfig struct {
	Env             string
	Port            string
	LogLevel        string
	StorageBackend  string
	CORSOrigins     string
	RateLimitPerMin int
	ShutdownTimeout time.Duration
	Upload          UploadConfig
	MinIO           MinIOConfig
}

// IsDevelopment reports whether the app runs with developer defaults (console logs, debug level).
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

var defaults = map[string]any{
	"APP_ENV":              "production",
	"PORT":                 "5000",
	"LOG_LEVEL":            "info",
	"STORAGE_BACKEND":      BackendLocal,
	"CORS_ALLOW_ORIGINS":   "*",
	"RATE_LIMIT_PER_MIN":   0,
	"SHUTDOWN_TIMEOUT_SEC": 15,
	"UPLOAD_DIR":           "uploads",
	"THUMBNAIL_DIR_NAME":   "thumbnails",
	"MAX_BODY_BYTES":       5 * 1024 * 1024,
	"THUMBNAIL_WIDTH":      200,
	"THUMBNAIL_HEIGHT":     200,
	"OPTIMIZE_QUALITY":     80,
	"NAMING_STRATEGY":      "monotonic",
	"MINIO_ENDPOINT":       "",
	"MINIO_ACCESS_KEY":     "",
	"MINIO_SECRET_KEY":     "",
	"MINIO_BUCKET":         "images",
	"MINIO_USE_SSL":        false,
}

// Load reads configuration from the environment.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over CONFIG_FILE values, which take precedence over defaults.
func Load() (*AppConfig, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &AppConfig{
		Env:             v.GetString("APP_ENV"),
		Port:            v.GetString("PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		StorageBackend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
		CORSOrigins:     v.GetString("CORS_ALLOW_ORIGINS"),
		RateLimitPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SEC")) * time.Second,
		Upload: UploadConfig{
			Dir:              v.GetString("UPLOAD_DIR"),
			ThumbnailDirName: v.GetString("THUMBNAIL_DIR_NAME"),
			MaxBodyBytes:     v.GetInt("MAX_BODY_BYTES"),
			ThumbnailWidth:   v.GetInt("THUMBNAIL_WIDTH"),
			ThumbnailHeight:  v.GetInt("THUMBNAIL_HEIGHT"),
			OptimizeQuality:  v.GetInt("OPTIMIZE_QUALITY"),
			NamingStrategy:   v.GetString("NAMING_STRATEGY"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.StorageBackend {
	case BackendLocal, BackendMinIO:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.Upload.ThumbnailDirName == "" || strings.ContainsAny(c.Upload.ThumbnailDirName, `/\`) {
		return fmt.Errorf("THUMBNAIL_DIR_NAME must be a single directory name")
	}
	if c.Upload.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return validateOrigins(c.CORSOrigins)
}

// validateOrigins accepts "*" or a comma separated list of scheme://host origins, where the host may
// start with a "*." subdomain wildcard.
func validateOrigins(list string) error {
	list = strings.TrimSpace(list)
	if list == "" || list == "*" {
		return nil
	}
	for _, origin := range strings.Split(list, ",") {
		origin = strings.TrimSpace(origin)
		u, err := url.Parse(strings.Replace(origin, "://*.", "://", 1))
		if err != nil || u.Scheme == "" || u.Host == "" || strings.Contains(u.Host, "*") ||
			(u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
			return fmt.Errorf("CORS_ALLOW_ORIGINS: invalid origin %q", origin)
		}
	}
	return nil
}

package promptgallery

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/catalog"
	"github.com/eringen/promptgallery/storage"
)

// Store backends selectable with SiteConfig.StoreDriver.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "pgx"
)

// SiteConfig holds all configuration for a gallery site.
type SiteConfig struct {
	Name        string // Site name (default "Prompt Gallery")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags

	Addr string // Listen address (default ":3000")

	StoreDriver string // "file", "sqlite" or "pgx" (default "file")
	DataDir     string // JSON collections for the file store (default "data")
	DatabaseURL string // sqlite path or postgres URL (default "data/gallery.db")

	AdminUsername string // Basic auth user (default "admin")
	AdminPassword string // Required: admin password
	AdminAPIKey   string // X-API-Key for import endpoints; empty disables them
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	S3 storage.S3Config // Optional object storage for images

	LogLevel  string // debug, info, warn, error (default "info")
	LogFormat string // json or console (default "json")

	DownloadTimeout  time.Duration // Import image download timeout (default 20s)
	MaxDownloadBytes int64         // Import image size cap (default 15MB)
	MaxUploadBytes   int64         // Multipart image size cap (default 10MB)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Prompt Gallery"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = StoreFile
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/gallery.db"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 20 * time.Second
	}
	if c.MaxDownloadBytes == 0 {
		c.MaxDownloadBytes = 15 << 20
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 10 << 20
	}
}

// Validate reports missing required settings.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("AdminPassword is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SessionSecret is required"))
	}
	switch c.StoreDriver {
	case StoreFile, StoreSQLite, StorePostgres, "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the site configuration from environment variables and an
// optional promptgallery.yaml in the working directory or ./config.
// Environment variables win over the file.
func LoadConfig() (SiteConfig, error) {
	v := viper.New()
	v.SetConfigName("promptgallery")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := SiteConfig{
		Name:          v.GetString("site_name"),
		URL:           v.GetString("site_url"),
		Description:   v.GetString("site_description"),
		Addr:          v.GetString("addr"),
		StoreDriver:   v.GetString("store_driver"),
		DataDir:       v.GetString("data_dir"),
		DatabaseURL:   v.GetString("database_url"),
		AdminUsername: v.GetString("admin_username"),
		AdminPassword: v.GetString("admin_password"),
		AdminAPIKey:   v.GetString("admin_api_key"),
		SessionSecret: v.GetString("session_secret"),
		CookieSecure:  v.GetBool("cookie_secure"),
		S3: storage.S3Config{
			Endpoint:        v.GetString("s3_endpoint"),
			AccountID:       v.GetString("r2_account_id"),
			AccessKeyID:     firstNonEmpty(v.GetString("s3_access_key_id"), v.GetString("r2_access_key_id")),
			SecretAccessKey: firstNonEmpty(v.GetString("s3_secret_access_key"), v.GetString("r2_secret_access_key")),
			Bucket:          firstNonEmpty(v.GetString("s3_bucket"), v.GetString("r2_bucket_name")),
			Region:          v.GetString("s3_region"),
			PublicURL:       firstNonEmpty(v.GetString("s3_public_url"), v.GetString("r2_public_url")),
			Insecure:        v.GetBool("s3_insecure"),
		},
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		DownloadTimeout:  v.GetDuration("download_timeout"),
		MaxDownloadBytes: v.GetInt64("max_download_bytes"),
		MaxUploadBytes:   v.GetInt64("max_upload_bytes"),
	}
	cfg.setDefaults()
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and local uploads (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStore uses s instead of opening the store named by the configuration.
// The App does not close an injected store.
func WithStore(s catalog.Store) Option {
	return func(a *App) {
		a.Store = s
		a.ownsStore = false
	}
}

// WithLogger sets the logger (default: built from LogLevel and LogFormat).
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithImageBackends replaces the configured image storage backends.
func WithImageBackends(backends ...storage.Backend) Option {
	return func(a *App) {
		a.imageBackends = backends
		a.customBackends = true
	}
}

// WithHTTPClient sets the client used to download imported images.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}

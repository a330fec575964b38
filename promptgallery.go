// Package promptgallery is a prompt and blog gallery built with Go, Echo, and templ.
// It serves a public JSON API over prompts and blog posts, an admin surface for
// curating them, and image ingestion with a storage fallback chain.
//
// Sites may provide their own templ templates via the ViewFuncs struct; pages
// whose view func is nil are not registered and the JSON API works on its own.
package promptgallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/catalog"
	"github.com/eringen/promptgallery/filestore"
	"github.com/eringen/promptgallery/sqlstore"
	"github.com/eringen/promptgallery/storage"
)

// ViewFuncs holds user-provided templ components that the app calls
// when rendering pages.
type ViewFuncs struct {
	Home           func(page catalog.Page[catalog.Prompt], q catalog.Query, siteURL string) templ.Component
	Prompt         func(p catalog.Prompt, related []catalog.Prompt, siteURL string) templ.Component
	Blog           func(page catalog.Page[catalog.BlogPost], q catalog.Query, siteURL string) templ.Component
	BlogPost       func(post catalog.BlogPost, related []catalog.BlogPost, siteURL string) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(prompts []catalog.Prompt, posts []catalog.BlogPost, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central gallery application. It wires together the store,
// image storage, handlers, middleware, and optional templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  catalog.Store
	Images *storage.Chain
	Views  ViewFuncs
	Log    *zap.Logger

	ownsStore      bool
	imageBackends  []storage.Backend
	customBackends bool
	httpClient     *http.Client
	loginLimiter   *Limiter
	likeLimiter    *Limiter
	metrics        *prometheus.Registry
	customRoutes   []func(*App)
	staticDir      string
	ready          bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
		ownsStore: true,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and image backends and registers middleware and routes.
// Start calls it when it has not run yet.
func (a *App) Init(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("promptgallery: %w", err)
	}
	if a.Log == nil {
		a.Log = NewLogger(a.Config.LogLevel, a.Config.LogFormat)
	}

	if a.Store == nil {
		store, err := a.openStore(ctx)
		if err != nil {
			return fmt.Errorf("promptgallery: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Images = storage.NewChain(a.Log, a.backends()...)
	a.Log.Info("image storage ready", zap.Strings("backends", a.Images.Backends()))

	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: a.Config.DownloadTimeout}
	}
	a.loginLimiter = NewLimiter(5, time.Minute)
	a.likeLimiter = NewLimiter(30, time.Minute)
	a.metrics = prometheus.NewRegistry()

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("store", a.Config.StoreDriver))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) openStore(ctx context.Context) (catalog.Store, error) {
	return OpenStore(ctx, a.Config, a.Log)
}

// OpenStore opens the record store selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg SiteConfig, log *zap.Logger) (catalog.Store, error) {
	switch cfg.StoreDriver {
	case StoreFile:
		return filestore.Open(filestore.Options{Dir: cfg.DataDir, Logger: log})
	default:
		return sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.StoreDriver, DSN: cfg.DatabaseURL})
	}
}

// backends returns the image storage tiers in priority order: object storage
// when configured, then the local uploads directory.
func (a *App) backends() []storage.Backend {
	if a.customBackends {
		return a.imageBackends
	}
	var out []storage.Backend
	if a.Config.S3.Enabled() {
		s3, err := storage.NewS3(a.Config.S3)
		if err != nil {
			a.Log.Warn("object storage disabled", zap.Error(err))
		} else {
			out = append(out, s3)
		}
	}
	return append(out, storage.NewLocal(a.uploadsDir()))
}

func (a *App) uploadsDir() string {
	return filepath.Join(a.staticDir, "uploads")
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.Static("/uploads", a.uploadsDir())
	e.GET(catalog.PlaceholderImage, a.handlePlaceholder)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/health", a.handleHealth)
	e.GET("/metrics", a.metricsHandler())
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public API
	api := e.Group("/api")
	api.GET("/prompts", a.handleListPrompts)
	api.GET("/prompts/:slug", a.handleGetPrompt)
	api.GET("/prompts/:slug/related", a.handleRelatedPrompts)
	api.POST("/prompts/:slug/like", a.handleLikePrompt)
	api.GET("/blog", a.handleListBlog)
	api.GET("/blog/:slug", a.handleGetBlogPost)
	api.GET("/blog/:slug/related", a.handleRelatedBlogPosts)

	// Admin API
	admin := api.Group("/admin", a.requireAdmin)
	admin.GET("/prompts", a.handleAdminListPrompts)
	admin.POST("/prompts", a.handleAdminCreatePrompt)
	admin.PATCH("/prompts/:id", a.handleAdminUpdatePrompt)
	admin.DELETE("/prompts/:id", a.handleAdminDeletePrompt)
	admin.GET("/blog", a.handleAdminListBlog)
	admin.POST("/blog", a.handleAdminCreateBlogPost)
	admin.PUT("/blog/:id", a.handleAdminUpdateBlogPost)
	admin.DELETE("/blog/:id", a.handleAdminDeleteBlogPost)
	admin.POST("/blog/upload-image", a.handleAdminUploadImage)

	// Import API
	imp := api.Group("/import", a.requireAPIKey)
	imp.POST("/prompts", a.handleImportPrompt)
	imp.POST("/blog", a.handleImportBlogPost)

	// Admin session
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	// Pages
	if a.Views.Home != nil {
		e.GET("/", a.handleHome)
	}
	if a.Views.Prompt != nil {
		e.GET("/images/:slug/", a.handlePromptPage)
	}
	if a.Views.Blog != nil {
		e.GET("/blog/", a.handleBlogPage)
	}
	if a.Views.BlogPost != nil {
		e.GET("/blog/:slug/", a.handleBlogPostPage)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.likeLimiter != nil {
		a.likeLimiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"imgupload/internal/config"
	handlers "imgupload/internal/http/handler"
	"imgupload/internal/http/middleware"
	"imgupload/internal/imageproc"
	"imgupload/internal/logger"
	"imgupload/internal/metrics"
	"imgupload/internal/naming"
	"imgupload/internal/otel"
	"imgupload/internal/service"
	"imgupload/internal/storage"
	"imgupload/web"
)

// @title Image Upload API
// @version 1.0
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "imgupload: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	originals, thumbs, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	strategy, err := naming.ParseStrategy(cfg.Upload.NamingStrategy)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline, err := metrics.NewPipeline(reg)
	if err != nil {
		return fmt.Errorf("register pipeline metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	proc := imageproc.New(imageproc.Options{
		ThumbnailWidth:  cfg.Upload.ThumbnailWidth,
		ThumbnailHeight: cfg.Upload.ThumbnailHeight,
		OptimizeQuality: cfg.Upload.OptimizeQuality,
	})
	imgSvc := service.NewImageService(originals, thumbs, naming.New(strategy, nil), proc, pipeline, log.Named("service"))

	app := fiber.New(handlers.AppConfig(cfg.Upload.MaxBodyBytes))

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics"
	})))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.RequestID())
	app.Use(promMiddleware.Handler())
	app.Use(middleware.Logger(log.Named("http")))

	var guards []fiber.Handler
	if cfg.RateLimitPerMin > 0 {
		guards = append(guards, middleware.NewIPRateLimiter(ctx, cfg.RateLimitPerMin, log.Named("ratelimit")).Handler())
	}
	handlers.RegisterRoutes(app, imgSvc, web.FileSystem(), guards...)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(reg)))

	handlers.RegisterDocs(app)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening",
			zap.String("addr", addr),
			zap.String("storage", cfg.StorageBackend),
			zap.String("naming", string(strategy)),
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
}

// openStores returns the originals store and the thumbnail store for the configured backend.
// Thumbnails live inside the originals namespace and are excluded from its listing.
func openStores(cfg *config.AppConfig) (storage.ImageStore, storage.ImageStore, error) {
	thumbName := cfg.Upload.ThumbnailDirName

	switch cfg.StorageBackend {
	case config.BackendMinIO:
		originals, err := storage.NewMinIO(cfg.MinIO, cfg.Upload.Dir, thumbName)
		if err != nil {
			return nil, nil, err
		}
		thumbs, err := storage.NewMinIO(cfg.MinIO, path.Join(cfg.Upload.Dir, thumbName))
		if err != nil {
			return nil, nil, err
		}
		return originals, thumbs, nil
	default:
		originals, err := storage.NewLocal(cfg.Upload.Dir, thumbName)
		if err != nil {
			return nil, nil, err
		}
		thumbs, err := storage.NewLocal(cfg.Upload.ThumbnailDir())
		if err != nil {
			return nil, nil, err
		}
		return originals, thumbs, nil
	}
}

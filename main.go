package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"jywanonton/api"
	"jywanonton/config"
	"jywanonton/handlers"
	"jywanonton/internal/identity"
	"jywanonton/services/melolo"
	"jywanonton/services/notice"
	"jywanonton/utils"
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code so deferred cleanup (log rotation,
// signal handling) runs before main exits.
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		defer rotator.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("server stopped: %v", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config) error {
	id := identity.New()
	log.Printf("[melolo] client identity device_id=%s install_id=%s", id.DeviceID, id.InstallID)

	client := melolo.NewClient(melolo.DefaultProfile(id),
		melolo.WithBaseURL(cfg.UpstreamBaseURL),
		melolo.WithTimeout(cfg.UpstreamTimeout),
	)
	svc := melolo.NewService(client, melolo.WithCache(afero.NewOsFs(), cfg.CacheDir, cfg.CacheTTL))
	if cfg.CacheTTL > 0 {
		log.Printf("[melolo] response cache in %s (ttl %s)", cfg.CacheDir, cfg.CacheTTL)
	}

	store, err := notice.NewStore(afero.NewOsFs(), cfg.NoticePath)
	if err != nil {
		return err
	}

	var limiter *api.IPRateLimiter
	if cfg.RateLimitPerMinute > 0 {
		var opts []api.LimiterOption
		if cfg.TrustProxy {
			opts = append(opts, api.WithProxyHeaders())
		}
		limiter = api.NewIPRateLimiter(cfg.RateLimitPerMinute, opts...)
		go limiter.Run(ctx)
	}
	if cfg.AdminAPIKey == "" {
		log.Printf("[http] ADMIN_API_KEY not set, admin routes are disabled")
	}

	r := utils.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	routes := handlers.Routes{
		Drama:    handlers.NewDramaHandler(svc),
		Images:   handlers.NewImageProxyHandler(nil),
		Notice:   handlers.NewNoticeHandler(store),
		Cache:    handlers.NewCacheHandler(svc),
		Static:   handlers.NewStaticHandler(cfg.PublicDir),
		AdminKey: cfg.AdminAPIKey,
		Limiter:  limiter,
	}
	if cfg.LogFile != "" {
		routes.Logs = handlers.NewLogsHandler(cfg.LogFile)
	}
	handlers.Register(r, routes)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           utils.Wrap(r, utils.NewOriginPolicy(cfg.CORSOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on %s (version %s)", srv.Addr, handlers.CurrentVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("[http] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

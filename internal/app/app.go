package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-manager/internal/backup"
	"image-manager/internal/config"
	"image-manager/internal/event"
	"image-manager/internal/handler"
	"image-manager/internal/metrics"
	"image-manager/internal/router"
	"image-manager/internal/service"
	"image-manager/internal/storage"
	"image-manager/internal/thumbnail"
	"image-manager/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func(ctx context.Context)
}

func New(cfg *config.Config) (*App, error) {
	store, err := storage.New(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage ready", "root", store.RootAbs(), "publicPrefix", cfg.PublicPrefix)

	recorder := metrics.New()

	bus := event.NewBus()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(bus)
	go hub.Run(hubCtx)

	thumbnails := thumbnail.NewJPEGGenerator(thumbnail.Options{
		MaxDimension:    cfg.ThumbnailMaxDimension,
		MaxBytes:        cfg.ThumbnailMaxBytes,
		Quality:         cfg.ThumbnailQuality,
		FallbackQuality: cfg.ThumbnailFallbackQuality,
	})

	fileService := service.NewFileService(store, thumbnails, cfg.AllowedMIMETypes, cfg.PublicPrefix, bus)
	fileService.SetMetrics(recorder)
	directoryService := service.NewDirectoryService(store, cfg.PublicPrefix, bus)

	cleanupFuncs := []func(ctx context.Context){
		func(context.Context) {
			hubCancel()
		},
	}

	if cfg.Backup.Enabled() {
		s3Backup, err := backup.NewS3Backup(context.Background(), cfg.Backup, recorder)
		if err != nil {
			hubCancel()
			return nil, fmt.Errorf("failed to initialize backup: %w", err)
		}
		fileService.SetBackup(s3Backup)
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) {
			if err := s3Backup.Wait(ctx); err != nil {
				slog.Warn("backup uploads still running at shutdown", "error", err)
			}
		})
		slog.Info("s3 backup enabled", "bucket", cfg.Backup.Bucket, "prefix", cfg.Backup.Prefix)
	}

	uiHandler, err := handler.NewUIHandler(router.StaticPrefix)
	if err != nil {
		hubCancel()
		return nil, fmt.Errorf("failed to load web client: %w", err)
	}

	appRouter := router.New(cfg, router.Handlers{
		Directory: handler.NewDirectoryHandler(directoryService),
		File:      handler.NewFileHandler(fileService, cfg.MaxUploadSize, cfg.PublicPrefix),
		Docs:      handler.NewDocsHandler(),
		UI:        uiHandler,
		Events:    websocket.NewHandler(hub, cfg.CORSOrigins),
	}, recorder)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

// Handler exposes the fully wired router.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.Close(ctx)
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.Close(ctx)
	slog.Info("server stopped")
	return nil
}

// Close stops background workers. In-flight backup uploads get until ctx
// expires to finish.
func (a *App) Close(ctx context.Context) {
	for _, cleanup := range a.cleanupFuncs {
		cleanup(ctx)
	}
}

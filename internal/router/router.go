package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"image-manager/internal/config"
	"image-manager/internal/handler"
	"image-manager/internal/metrics"
	"image-manager/internal/middleware"
	"image-manager/internal/websocket"
)

type Handlers struct {
	Directory *handler.DirectoryHandler
	File      *handler.FileHandler
	Docs      *handler.DocsHandler
	UI        *handler.UIHandler
	Events    *websocket.Handler
}

// StaticPrefix is where the browser client's assets are served.
const StaticPrefix = "/static"

func New(cfg *config.Config, h Handlers, recorder *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.PublicPrefix+"/", StaticPrefix+"/", "/health", "/metrics")

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", recorder.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)
	r.Get("/", h.UI.Index)
	r.Get(StaticPrefix+"/*", h.UI.Static)

	r.Route("/api", func(api chi.Router) {
		// Long-lived responses stay outside the request timeout.
		api.With(middleware.StreamingTimeout(cfg.StreamMaxDuration, cfg.StreamIdleTimeout)).Get("/folder/archive", h.Directory.Archive)
		api.Method(http.MethodGet, "/ws", h.Events)

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(cfg.RequestTimeout))

			timed.Post("/upload", h.File.Upload)
			timed.Get("/list", h.Directory.List)
			timed.Post("/folder", h.Directory.Create)
			timed.Delete("/folder", h.Directory.Delete)
			timed.Post("/folder/rename", h.Directory.Rename)
			timed.Post("/file/rename", h.File.Rename)
			timed.Delete("/file", h.File.Delete)
		})
	})

	r.With(middleware.StreamingTimeout(cfg.StreamMaxDuration, cfg.StreamIdleTimeout)).Get(cfg.PublicPrefix+"/*", h.File.Serve)
	r.With(middleware.StreamingTimeout(cfg.StreamMaxDuration, cfg.StreamIdleTimeout)).Head(cfg.PublicPrefix+"/*", h.File.Serve)

	return r
}

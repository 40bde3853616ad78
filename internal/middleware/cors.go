package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Range", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "Content-Range", "X-Request-ID"},
		MaxAge:         3600,
	})

	return handler.Handler
}

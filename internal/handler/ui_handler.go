package handler

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var webAssets embed.FS

// UIHandler serves the browser client: index.html at "/" and the rest of the
// embedded assets under the static prefix.
type UIHandler struct {
	index  []byte
	static http.Handler
}

func NewUIHandler(staticPrefix string) (*UIHandler, error) {
	assets, err := fs.Sub(webAssets, "web")
	if err != nil {
		return nil, err
	}

	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return nil, err
	}

	return &UIHandler{
		index:  index,
		static: http.StripPrefix(staticPrefix, http.FileServer(http.FS(assets))),
	}, nil
}

func (h *UIHandler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: blob:; connect-src 'self' ws: wss:")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.index)
}

func (h *UIHandler) Static(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout guards file transfer routes without buffering the
// response. maxDuration caps the whole transfer; idleTimeout cancels the
// request when no bytes are written for that long. Range requests served
// by http.ServeContent keep working because Flush passes through.
func StreamingTimeout(maxDuration time.Duration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	if maxDuration <= 0 {
		maxDuration = 10 * time.Minute
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			sw := &idleWriter{ResponseWriter: w, rc: rc, idleTimeout: idleTimeout, cancel: cancel}
			sw.touch()
			defer sw.stop()

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

type idleWriter struct {
	http.ResponseWriter
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (sw *idleWriter) touch() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.timer != nil {
		sw.timer.Reset(sw.idleTimeout)
		return
	}

	sw.timer = time.AfterFunc(sw.idleTimeout, func() {
		_ = sw.rc.SetWriteDeadline(time.Now())
		sw.cancel()
	})
}

func (sw *idleWriter) stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.timer != nil {
		sw.timer.Stop()
	}
}

func (sw *idleWriter) Write(b []byte) (int, error) {
	sw.touch()
	return sw.ResponseWriter.Write(b)
}

func (sw *idleWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *idleWriter) Flush() {
	if flusher, ok := sw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

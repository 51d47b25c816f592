package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicrun/remotebrowser/log"
)

// NewServer returns an http.Server exposing the session state so other
// processes can attach to the same browser.
func NewServer(addr string, sc *Context, logger *log.Logger) *http.Server {
	mux := withLoggingHandler(logger.Logger, newHandler(sc, logger))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

func newHandler(sc *Context, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", handleHealth(logger))
	mux.Handle("/state", handleState(sc))
	mux.Handle("/telemetry", handleTelemetry(sc))
	mux.Handle("/cdp_url", handleCDPURL(sc))
	mux.Handle("/initialize", handleInitialize(sc))
	mux.Handle("/shutdown", handleShutdown(sc))
	return mux
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrappedResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// withLoggingHandler returns the middleware which logs response status for
// each request.
func withLoggingHandler(l logrus.FieldLogger, next http.Handler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wrapped := &wrappedResponseWriter{ResponseWriter: rw, status: 200} // The default status code is 200 if it's not set
		next.ServeHTTP(wrapped, r)

		l.WithField("status", wrapped.status).Debugf("%s %s", r.Method, r.URL.Path)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func requireMethod(method string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeJSON(rw, http.StatusMethodNotAllowed, map[string]string{
				"error": fmt.Sprintf("method %s not allowed", r.Method),
			})
			return
		}
		next(rw, r)
	})
}

func handleHealth(logger *log.Logger) http.Handler {
	return requireMethod(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Add("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprint(rw, "ok"); err != nil {
			logger.Errorf("session:server", "writing health response: %v", err)
		}
	})
}

func handleState(sc *Context) http.Handler {
	return requireMethod(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		t := sc.Telemetry()
		writeJSON(rw, http.StatusOK, map[string]any{
			"initialized": sc.IsInitialized(),
			"status":      t.Status,
		})
	})
}

func handleTelemetry(sc *Context) http.Handler {
	return requireMethod(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, sc.Telemetry())
	})
}

func handleCDPURL(sc *Context) http.Handler {
	return requireMethod(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		url := sc.CDPURL()
		if url == "" {
			writeJSON(rw, http.StatusNotFound, map[string]string{"error": "no browser session"})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]string{"cdp_url": url})
	})
}

func handleInitialize(sc *Context) http.Handler {
	return requireMethod(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		url, err := sc.Initialize(r.Context())
		if err != nil {
			writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]string{"cdp_url": url})
	})
}

func handleShutdown(sc *Context) http.Handler {
	return requireMethod(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		sc.Shutdown(r.Context())
		writeJSON(rw, http.StatusOK, map[string]string{"status": string(StatusTerminated)})
	})
}

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"PipelineSync/api/constants"
	"PipelineSync/internal/logger"
)

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// createReverseProxy returns a reverse proxy handler for the given target URL
func createReverseProxy(target string) http.HandlerFunc {
	log := logger.Component("gateway")
	targetURL, parseErr := url.Parse(target)
	var proxy *httputil.ReverseProxy
	if parseErr == nil {
		proxy = httputil.NewSingleHostReverseProxy(targetURL)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		audit(fmt.Sprintf("[Gateway] Incoming request: %s %s from %s", r.Method, r.URL.Path, clientIP))

		if proxy == nil {
			log.WithError(parseErr).Errorf("bad target URL %s for %s", target, r.URL.Path)
			http.Error(w, constants.ErrBadProxyTarget, http.StatusInternalServerError)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		proxy.ServeHTTP(rw, r)
		if rw.statusCode >= 400 {
			audit(fmt.Sprintf("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String()))
		} else {
			audit(fmt.Sprintf("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode))
		}
	}
}

func audit(msg string) {
	if l := logger.GlobalLogger; l != nil {
		l.LogAudit(msg)
		return
	}
	logger.Component("gateway").Info(msg)
}

// responseWriter wraps http.ResponseWriter to capture status code and the
// body of error responses
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.body.Len() < 4096 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	audit("[Gateway] [Error] " + r.URL.Path + " from " + r.RemoteAddr + " (route not found)")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(constants.ErrRouteNotFound))
}

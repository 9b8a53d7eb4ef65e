package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"zlibsearch/internal/logger"
)

// RequestLogger logs every request once it has been served. Server errors
// are logged at ERROR, everything else at INFO.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := logger.For(r.Context()).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
			"status": status,
			"bytes":  ww.BytesWritten(),
			"remote": r.RemoteAddr,
			"agent":  r.UserAgent(),
			"took":   time.Since(start),
		})
		if status >= http.StatusInternalServerError {
			entry.Error("http.request")
			return
		}
		entry.Info("http.request")
	})
}

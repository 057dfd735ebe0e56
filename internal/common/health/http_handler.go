package health

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// HttpHandler reports checker over HTTP: 204 when healthy, otherwise 503 with the failure as plain text.
// HEAD requests get the status only.
func HttpHandler(checker Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		err := checker.Check()
		if err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		log.WithError(err).Warn("Health check failed")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.WriteString(w, err.Error()); err != nil {
			log.WithError(err).Error("Failed to write health check response")
		}
	})
}

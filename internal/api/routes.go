package api

import (
	"net/http"
	"time"

	"github.com/mmrzaf/sdcatalog/internal/logging"
)

// NewRouter registers every catalogue and task route and wraps the mux in
// request logging.
func NewRouter(h *Handler, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", h.Health)

	mux.HandleFunc("POST /metadata", h.CreateDataset)
	mux.HandleFunc("GET /metadata", h.ListDatasets)
	mux.HandleFunc("GET /metadata/{disease}", h.GetDataset)
	mux.HandleFunc("DELETE /metadata", h.DeleteDataset)
	mux.HandleFunc("DELETE /metadata/all", h.DeleteAllDatasets)

	mux.HandleFunc("POST /tasks", h.RegisterTask)
	mux.HandleFunc("GET /tasks", h.ListTasks)
	mux.HandleFunc("GET /tasks/{id}", h.GetTask)
	mux.HandleFunc("GET /tasks/{id}/status", h.GetTaskStatus)
	mux.HandleFunc("PUT /tasks/{id}/status", h.UpdateTaskStatus)

	return loggingMiddleware(logger.WithComponent("http"), mux)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		switch {
		case sw.status >= 500:
			logger.Errorw("request.completed", fields)
		case sw.status >= 400:
			logger.Warnw("request.completed", fields)
		case r.URL.Path == "/healthcheck":
			logger.Debugw("request.completed", fields)
		default:
			logger.Infow("request.completed", fields)
		}
	})
}

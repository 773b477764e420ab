package app

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/config"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Tag every request with an id and log it
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			requestId := req.Header.Get("X-Request-Id")
			if requestId == "" {
				requestId = uuid.New().String()
			}
			w.Header().Set("X-Request-Id", requestId)
			log.Debugf("%s %s (request %s)", req.Method, req.URL.Path, requestId)
			next.ServeHTTP(w, req)
		})
	})

	// Propagate the caller's bearer token into context so the backend
	// client forwards it verbatim
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			authHeader := req.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && token != "" {
				ctx = backend.WithAuthToken(ctx, token)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
}

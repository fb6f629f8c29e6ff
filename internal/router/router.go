package router

import (
	"net/http"
	"time"

	"YcrudAPI/internal/auth"
	"YcrudAPI/internal/config"
	"YcrudAPI/internal/crud"
	"YcrudAPI/internal/handler"
	"YcrudAPI/internal/logger"

	"github.com/google/uuid"
)

// Route prefixes; the prefix decides the caller scope.
const (
	PublicPrefix   = "/api"
	InternalPrefix = "/int"
)

// InitRoutes builds the HTTP surface. validator is nil when auth is disabled.
func InitRoutes(h *handler.Handler, cfg *config.Config, validator *auth.JWTValidator) http.Handler {
	mux := http.NewServeMux()
	for _, scope := range []struct {
		prefix   string
		internal bool
	}{
		{PublicPrefix, false},
		{InternalPrefix, true},
	} {
		base := scope.prefix + "/{version}/{resource}"
		wrap := func(op crud.Op) http.HandlerFunc {
			next := h.Handle(op, scope.internal)
			if scope.internal && validator != nil {
				next = requireInternal(next)
			}
			return next
		}
		mux.HandleFunc("GET "+base, wrap(crud.OpList))
		mux.HandleFunc("POST "+base, wrap(crud.OpCreate))
		mux.HandleFunc("GET "+base+"/search", wrap(crud.OpSearch))
		mux.HandleFunc("GET "+base+"/count", wrap(crud.OpCount))
		mux.HandleFunc("GET "+base+"/{id}", wrap(crud.OpGet))
		mux.HandleFunc("PUT "+base+"/{id}", wrap(crud.OpUpdate))
		mux.HandleFunc("PATCH "+base+"/{id}", wrap(crud.OpUpdate))
		mux.HandleFunc("DELETE "+base+"/{id}", wrap(crud.OpDelete))
	}

	var next http.Handler = mux
	if validator != nil {
		next = withAuth(validator, next)
	}
	next = newCORS(cfg.CORS).Handler(next)
	return withRequestID(withLogging(next))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

const requestIDHeader = "X-Request-ID"

// withRequestID propagates or assigns X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  r.Header.Get(requestIDHeader),
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}

// withAuth requires a valid bearer token and stores its claims in the context.
func withAuth(v *auth.JWTValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := auth.BearerToken(r)
		if !ok {
			handler.WriteJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "message": "missing bearer token"})
			return
		}
		claims, err := v.ValidateToken(token)
		if err != nil {
			logger.Warn("auth_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
			handler.WriteJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func requireInternal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		if !auth.IsInternal(claims) {
			handler.WriteJSON(w, http.StatusForbidden, map[string]any{"status": "error", "message": "internal access required"})
			return
		}
		next(w, r)
	}
}

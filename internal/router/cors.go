package router

import (
	"net/http"
	"strings"

	"YcrudAPI/internal/config"

	"github.com/rs/cors"
)

func newCORS(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   parseOrigins(cfg.AllowOrigin),
		AllowCredentials: cfg.AllowCredentials,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	})
}

// parseOrigins splits the CSV origin list; empty means any origin.
func parseOrigins(allowOrigin string) []string {
	parts := strings.Split(allowOrigin, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		res = append(res, p)
	}
	if len(res) == 0 {
		return []string{"*"}
	}
	return res
}

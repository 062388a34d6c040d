package middleware

import (
	"net/http"

	"cloakroom-backend/internal/config"

	"github.com/rs/cors"
)

// NewCORS lets the admin dashboard call the API from its own origin.
// Credentials are only allowed for an explicit origin list.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Server.CorsAllowedOrigins
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
	return c.Handler
}

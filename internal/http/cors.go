package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsAllowAll is the CORS_ALLOW_ORIGINS value that accepts any origin.
const corsAllowAll = "*"

// corsPolicy returns the cors.Config for the given origins. A lone "*" allows every
// origin; credentials are only allowed for an explicit origin list.
func corsPolicy(origins []string) cors.Config {
	policy := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:  []string{"Content-Type", "X-Actor"},
		ExposeHeaders: []string{"X-Request-Id", "X-Content-Sha256", "X-Content-Format", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 1 && origins[0] == corsAllowAll {
		policy.AllowAllOrigins = true
		return policy
	}

	policy.AllowOrigins = origins
	policy.AllowCredentials = true
	return policy
}

// createCORSMiddleware builds the CORS middleware for browser clients of the
// transaction API. It returns nil when CORS is disabled or the origin list is empty.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS enabled but CORS_ALLOW_ORIGINS is empty, skipping")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))
	return cors.New(corsPolicy(origins))
}

// parseOrigins splits a comma-separated origin list, dropping blanks. A "*" anywhere
// in the list collapses it to the wildcard.
func parseOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimRight(strings.TrimSpace(part), "/")
		switch origin {
		case "":
			continue
		case corsAllowAll:
			return []string{corsAllowAll}
		}
		origins = append(origins, origin)
	}
	return origins
}

package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "sitepulse/api/v1"
	"sitepulse/internal/config"
	"sitepulse/internal/http"
)

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server, handler *v1.Handler) {
	cfg := config.GetConfig()

	// The tracker is embedded on the portfolio site and must accept
	// cross-origin requests. Production with a configured domain narrows
	// the allowed origin to that site.
	allowOrigins := "*"
	if cfg.IsProduction() && cfg.Domain != "" {
		allowOrigins = "https://" + cfg.Domain
	}
	publicCORSConfig := &cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "POST,GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
	}

	// Rate limiting only applies in production; in development and test
	// it would interfere with local runs.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70/min per IP handles legitimate tracking traffic while limiting abuse
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stricter limit on the admin reset endpoint to slow brute force attempts
	adminRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	adminAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{adminRateLimiter},
	}

	noContent := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC TRACKING ROUTES ===
	srv.Post("/x/api/v1/track", handler.TrackEvent, publicAPIConfig)
	srv.Options("/x/api/v1/track", noContent, publicAPIConfig)
	srv.Post("/x/api/v1/track/beacon", handler.TrackEventBeacon, publicAPIConfig)
	srv.Options("/x/api/v1/track/beacon", noContent, publicAPIConfig)

	// === PUBLIC ANALYTICS ROUTES ===
	srv.Get("/x/api/v1/analytics", handler.GetStats, publicAPIConfig)
	srv.Options("/x/api/v1/analytics", noContent, publicAPIConfig)
	srv.Get("/x/api/v1/analytics/summary", handler.GetSummary, publicAPIConfig)
	srv.Options("/x/api/v1/analytics/summary", noContent, publicAPIConfig)
	srv.Get("/x/api/v1/analytics/overview", handler.GetOverview, publicAPIConfig)
	srv.Options("/x/api/v1/analytics/overview", noContent, publicAPIConfig)

	// Visitor self-inspection
	srv.Get("/x/api/v1/me", handler.GetVisitorInfo, publicAPIConfig)
	srv.Options("/x/api/v1/me", noContent, publicAPIConfig)

	// === ADMIN ROUTES ===
	srv.Post("/admin/api/v1/reset", handler.ResetAnalytics, adminAPIConfig)
}

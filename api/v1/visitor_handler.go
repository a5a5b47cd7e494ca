package v1

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/visitors"
)

// GetVisitorInfo returns what the tracker knows about the requesting
// visitor: session id, alias and classification. It exists so visitors
// can see exactly what gets recorded about them.
func (h *Handler) GetVisitorInfo(ctx *cartridge.Context) error {
	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}
	if userAgent == "" {
		userAgent = visitors.DefaultUserAgent
	}

	clientIP := getClientIP(ctx.Ctx)
	sessionID := visitors.SessionID(clientIP, userAgent)
	cls := visitors.Classify(userAgent)

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"sessionId":   sessionID,
		"alias":       visitors.Alias(sessionID),
		"deviceType":  cls.DeviceType,
		"browser":     cls.Browser,
		"os":          cls.OS,
		"country":     geoip.LookupCountry(clientIP),
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

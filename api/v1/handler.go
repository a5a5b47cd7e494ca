// Package v1 holds the public tracking and analytics API handlers.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/config"
	"sitepulse/internal/ledger"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/snapshot"
	"sitepulse/internal/visitors"
)

const (
	msgEventAdded     = "Event tracked successfully"
	errInvalidRequest = "Invalid request"
)

// Event types accepted by the track endpoint.
const (
	EventPageView    = "pageView"
	EventVisitor     = "visitor"
	EventBlogView    = "blogView"
	EventPerformance = "performance"
)

// TrackEventParams is the request body of the track endpoint.
type TrackEventParams struct {
	Type string         `json:"type"`
	Data TrackEventData `json:"data"`
}

// TrackEventData carries the client-supplied event fields; which ones
// matter depends on the event type.
type TrackEventData struct {
	Page       string    `json:"page"`
	Referrer   string    `json:"referrer"`
	Language   string    `json:"language"`
	Timezone   string    `json:"timezone"`
	LoadTimeMs float64   `json:"loadTimeMs"`
	HasError   bool      `json:"hasError"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handler wires the tracking endpoints to the ledger and snapshot store.
type Handler struct {
	visitorLedger *ledger.Ledger
	store         *snapshot.Store
	cfg           *config.Config
}

// NewHandler creates the API handler with its collaborators.
func NewHandler(visitorLedger *ledger.Ledger, store *snapshot.Store, cfg *config.Config) *Handler {
	return &Handler{
		visitorLedger: visitorLedger,
		store:         store,
		cfg:           cfg,
	}
}

// TrackEvent handles POST track requests. Durable counter updates run in
// the background after the response; the client gets a 202 as soon as the
// event is admitted.
func (h *Handler) TrackEvent(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received track request",
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.Path()))

	var params TrackEventParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse track request", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "INVALID_BODY",
		})
	}

	if err := h.dispatch(ctx, &params); err != nil {
		return err
	}

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}

// TrackEventBeacon handles events sent via navigator.sendBeacon, which
// posts text/plain and ignores the response. It always answers 202.
func (h *Handler) TrackEventBeacon(ctx *cartridge.Context) error {
	var params TrackEventParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if err := h.dispatch(ctx, &params); err != nil {
		ctx.Logger.Debug("Beacon event rejected", slog.Any("error", err))
	}
	return ctx.SendStatus(http.StatusAccepted)
}

// runAsync executes a persistence function in the background. Tests run
// inline so assertions see the counters immediately.
func (h *Handler) runAsync(fn func()) {
	if h.cfg.IsTest() {
		fn()
		return
	}
	go fn()
}

// dispatch routes one parsed event to its counter updates. A non-nil
// return already carries the HTTP response.
func (h *Handler) dispatch(ctx *cartridge.Context, params *TrackEventParams) error {
	logger := ctx.Logger

	switch params.Type {
	case EventPageView:
		rec := h.recordFromRequest(ctx, params.Data)
		rec = h.visitorLedger.Append(rec)
		page := rec.Page
		isFirst := rec.IsFirstVisit
		device := rec.DeviceType
		country := rec.Country
		h.runAsync(func() {
			if err := h.store.TrackPageView(page); err != nil {
				logger.Error("Failed to persist page view", slog.Any("error", err))
			}
			if isBlogPage(page) {
				if err := h.store.TrackBlogView(blogSlug(page)); err != nil {
					logger.Error("Failed to persist blog view", slog.Any("error", err))
				}
			}
			if isFirst {
				if err := h.store.TrackVisitor(device, country, false); err != nil {
					logger.Error("Failed to persist visitor", slog.Any("error", err))
				}
			}
		})

	case EventVisitor:
		rec := h.recordFromRequest(ctx, params.Data)
		returning := h.visitorLedger.SeenSession(rec.SessionID)
		h.runAsync(func() {
			if err := h.store.TrackVisitor(rec.DeviceType, rec.Country, returning); err != nil {
				logger.Error("Failed to persist visitor", slog.Any("error", err))
			}
		})

	case EventBlogView:
		slug := blogSlug(params.Data.Page)
		h.runAsync(func() {
			if err := h.store.TrackBlogView(slug); err != nil {
				logger.Error("Failed to persist blog view", slog.Any("error", err))
			}
		})

	case EventPerformance:
		loadTime := params.Data.LoadTimeMs
		hasError := params.Data.HasError
		h.runAsync(func() {
			if err := h.store.TrackPerformance(loadTime, hasError); err != nil {
				logger.Error("Failed to persist performance sample", slog.Any("error", err))
			}
		})

	default:
		logger.Debug("Unknown event type", slog.String("type", params.Type))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown event type",
			"code":  "UNKNOWN_EVENT_TYPE",
		})
	}

	return nil
}

// isBlogPage matches the blog index and paths under it. A path that merely
// starts with "/blog" (like "/blogging-tips") is not blog content.
func isBlogPage(page string) bool {
	return page == "/blog" || strings.HasPrefix(page, "/blog/")
}

// blogSlug extracts the post slug from a blog page path. The blog index,
// nested paths and non-blog paths yield an empty slug.
func blogSlug(page string) string {
	if !strings.HasPrefix(page, "/blog/") {
		return ""
	}
	slug := strings.Trim(strings.TrimPrefix(page, "/blog/"), "/")
	if strings.Contains(slug, "/") {
		return ""
	}
	return slug
}

// recordFromRequest classifies the request into a visitor record. The
// user agent honors the X-Forwarded-User-Agent override set by proxies.
func (h *Handler) recordFromRequest(ctx *cartridge.Context, data TrackEventData) visitors.VisitorRecord {
	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	ip := getClientIP(ctx.Ctx)

	return visitors.NewRecord(visitors.ParseInput{
		IP:        ip,
		UserAgent: userAgent,
		Page:      data.Page,
		Referrer:  data.Referrer,
		Language:  data.Language,
		Timezone:  data.Timezone,
		Country:   geoip.LookupCountry(ip),
		Timestamp: data.Timestamp,
	})
}

package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/pkg/async"
)

// GetStats serves the live aggregate view from the ledger. With
// ?type=recent it returns the latest visitor records instead; limit is
// capped by configuration.
func (h *Handler) GetStats(ctx *cartridge.Context) error {
	if ctx.Query("type") == "recent" {
		limit := h.cfg.RecentVisitorsLimit
		if raw := ctx.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid limit",
					"code":  "INVALID_LIMIT",
				})
			}
			if parsed < limit {
				limit = parsed
			}
		}
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"visitors":    h.visitorLedger.RecentVisitors(limit),
			"generatedAt": time.Now().UTC().Format(time.RFC3339),
		})
	}

	return ctx.Status(http.StatusOK).JSON(h.visitorLedger.Stats(time.Now().UTC()))
}

// GetSummary serves the lifetime counters from the snapshot store.
func (h *Handler) GetSummary(ctx *cartridge.Context) error {
	summary, err := h.store.Summarize()
	if err != nil {
		ctx.Logger.Error("Failed to load analytics summary", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load summary",
			"code":  "SUMMARY_ERROR",
		})
	}
	return ctx.Status(http.StatusOK).JSON(summary)
}

// GetOverview combines the live ledger view and the lifetime summary in
// one response; the two reads run concurrently.
func (h *Handler) GetOverview(ctx *cartridge.Context) error {
	now := time.Now().UTC()

	reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := async.NewPool(2)
	results := pool.Execute(reqCtx, []async.Task{
		{
			Name: "live",
			Execute: func() (any, error) {
				return h.visitorLedger.Stats(now), nil
			},
		},
		{
			Name: "lifetime",
			Execute: func() (any, error) {
				return h.store.Summarize()
			},
		},
	})

	for name, result := range results {
		if result.Err != nil {
			ctx.Logger.Error("Failed to build overview section",
				slog.String("section", name),
				slog.Any("error", result.Err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to build overview",
				"code":  "OVERVIEW_ERROR",
			})
		}
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"live":        results["live"].Data,
		"lifetime":    results["lifetime"].Data,
		"generatedAt": now.Format(time.RFC3339),
	})
}

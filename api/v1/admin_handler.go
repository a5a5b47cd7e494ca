package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/users"
)

type resetParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetAnalytics zeroes the lifetime counters. It requires admin
// credentials in the body; the set of pages and countries ever seen is
// preserved with zero counts.
func (h *Handler) ResetAnalytics(ctx *cartridge.Context) error {
	var params resetParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "INVALID_BODY",
		})
	}

	db := ctx.DBManager.GetConnection()
	if _, err := users.Authenticate(db, params.Email, params.Password); err != nil {
		ctx.Logger.Warn("Rejected analytics reset", slog.String("email", params.Email))
		return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
			"code":  "UNAUTHORIZED",
		})
	}

	if err := h.store.Reset(); err != nil {
		ctx.Logger.Error("Failed to reset analytics", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset analytics",
			"code":  "RESET_ERROR",
		})
	}

	ctx.Logger.Info("Analytics counters reset", slog.String("email", params.Email))
	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Analytics counters reset",
	})
}

package handlers

import (
	"errors"
	"strings"

	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/pkg/logger"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError maps a service-layer error onto the response envelope.
// Internal causes are logged here and never surfaced to the client.
func serviceError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logger.Error("unexpected_error", err, map[string]interface{}{
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
	if svcErr.Kind == services.KindInternal {
		logger.Error("internal_error", svcErr.Err, map[string]interface{}{
			"path":    c.Path(),
			"message": svcErr.Message,
		})
	}
	return utils.Error(c, httpStatus(svcErr.Kind), svcErr.Message)
}

// httpStatus keeps the kind-to-status mapping at the transport edge; the
// service layer only reports kinds.
func httpStatus(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindBadRequest:
		return fiber.StatusBadRequest
	case services.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

package server

import (
	"errors"
	"io"
	"log/slog"

	"overthinkistan/internal/featureflags"
	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// respondServiceError answers err with the status its code maps to. Errors
// that are not AppErrors are reported as internal so their text stays in the logs.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// parseLimit reads ?limit= clamped to (0, maxSearchLimit].
func parseLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return limit
}

// readUpload returns the name and content of the multipart "file" field.
// At most limit+1 bytes are read so the uploader can reject oversize files.
func readUpload(c *fiber.Ctx, limit int64) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, models.NewValidationError("No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return fh.Filename, data, nil
}

// writeGuard lets anonymous callers write while the anonymous_writes flag is
// on and otherwise requires a valid token.
func (s *Server) writeGuard() fiber.Handler {
	required := s.auth.Required()
	return func(c *fiber.Ctx) error {
		if s.featureFlags.EnabledOr(featureflags.AnonymousWrites, "", true) {
			return c.Next()
		}
		return required(c)
	}
}

// selfOrAdmin only lets users act on their own record unless they are admins.
// Must be placed after Required.
func (s *Server) selfOrAdmin(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		refID, _ := c.Locals(middleware.LocalUserRefID).(string)
		role, _ := c.Locals(middleware.LocalUserRole).(string)
		if role != models.RoleAdmin && refID != c.Params(param) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You can only modify your own account"))
		}
		return c.Next()
	}
}

// upgradeRequired rejects plain HTTP requests on websocket routes.
func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

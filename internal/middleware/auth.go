// Package middleware provides authentication, logging, tracing and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"overthinkistan/internal/auth"
	"overthinkistan/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Fiber locals populated once a caller has been authenticated.
const (
	LocalUserRefID = "userRefID"
	LocalUserRole  = "userRole"
	LocalClaims    = "claims"
)

// TokenCookie is the cookie browsers may present instead of an Authorization header.
const TokenCookie = "token"

// TokenParser verifies a raw token string.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ActiveUserFunc reports whether the user behind refID may still act.
type ActiveUserFunc func(ctx context.Context, refID string) (bool, error)

// Authenticator resolves callers from bearer tokens.
type Authenticator struct {
	tokens   TokenParser
	revoked  RevocationChecker
	isActive ActiveUserFunc
}

// NewAuthenticator wires token parsing with an optional revocation list and
// an optional active-user check. A nil isActive accepts every decoded user.
func NewAuthenticator(tokens TokenParser, revoked RevocationChecker, isActive ActiveUserFunc) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked, isActive: isActive}
}

var (
	errNoToken      = errors.New("authorization required")
	errRevoked      = errors.New("token has been revoked")
	errInactiveUser = errors.New("user is no longer active")
	errActiveLookup = errors.New("active user lookup failed")
)

// TokenFromRequest returns the raw token of the request. The Authorization
// header wins over the cookie. WebSocket upgrades may also pass ?token=
// since browsers cannot set headers on them.
func TokenFromRequest(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		return auth.StripBearer(h)
	}
	if v := c.Cookies(TokenCookie); v != "" {
		return auth.StripBearer(v)
	}
	if websocket.IsWebSocketUpgrade(c) {
		return auth.StripBearer(c.Query("token"))
	}
	return ""
}

func (a *Authenticator) identify(c *fiber.Ctx) (*auth.Claims, error) {
	raw := TokenFromRequest(c)
	if raw == "" {
		return nil, errNoToken
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			// Redis outages must not lock every user out.
			Logger.WarnContext(c.UserContext(), "token revocation check failed", slog.String("error", err.Error()))
		} else if revoked {
			return nil, errRevoked
		}
	}
	return claims, nil
}

// resolve identifies the caller and confirms the user behind the token is
// still active.
func (a *Authenticator) resolve(c *fiber.Ctx) (*auth.Claims, error) {
	claims, err := a.identify(c)
	if err != nil {
		return nil, err
	}
	if a.isActive == nil {
		return claims, nil
	}
	active, err := a.isActive(c.UserContext(), claims.RefID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errActiveLookup, err)
	}
	if !active {
		return nil, fmt.Errorf("%w: %s", errInactiveUser, claims.RefID)
	}
	return claims, nil
}

func setIdentity(c *fiber.Ctx, claims *auth.Claims) {
	c.Locals(LocalUserRefID, claims.RefID)
	c.Locals(LocalUserRole, claims.Role)
	c.Locals(LocalClaims, claims)
	c.SetUserContext(WithUserRefID(c.UserContext(), claims.RefID))
}

// Required rejects requests without a valid token for an active user.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := a.resolve(c)
		if err != nil {
			msg := "Invalid or expired token"
			switch {
			case errors.Is(err, errActiveLookup):
				return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
			case errors.Is(err, errNoToken):
				msg = "Authorization required"
			case errors.Is(err, errRevoked):
				msg = "Token has been revoked"
			case errors.Is(err, errInactiveUser):
				Logger.InfoContext(c.UserContext(), "rejected token", slog.String("reason", err.Error()))
				msg = "User not found or inactive"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// Optional attaches the caller identity when a valid token for an active user
// is present and otherwise continues anonymously.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := a.resolve(c); err == nil {
			setIdentity(c, claims)
		}
		return c.Next()
	}
}

// AdminRequired rejects callers whose token role is not admin.
// Must be placed after Required.
func (a *Authenticator) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		if role != models.RoleAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// ActorRefID returns the refId of the caller, or "" for anonymous callers.
// Identity resolved by earlier middleware wins; otherwise the header and
// then the cookie are decoded. Undecodable tokens and tokens of inactive
// users are treated as anonymous.
func (a *Authenticator) ActorRefID(c *fiber.Ctx) string {
	if ref, ok := c.Locals(LocalUserRefID).(string); ok && ref != "" {
		return ref
	}
	claims, err := a.resolve(c)
	if err != nil {
		switch {
		case errors.Is(err, errActiveLookup):
			Logger.WarnContext(c.UserContext(), "writing anonymously", slog.String("error", err.Error()))
		case !errors.Is(err, errNoToken):
			Logger.DebugContext(c.UserContext(), "ignoring token", slog.String("error", err.Error()))
		}
		return ""
	}
	setIdentity(c, claims)
	return claims.RefID
}

// ClaimsFrom returns the claims stored by Required or Optional.
func ClaimsFrom(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(LocalClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

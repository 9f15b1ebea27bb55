package server

import (
	"time"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// tokenResponse is the body of a successful signup or signin.
type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) setTokenCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SignUp handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new user account and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignUpInput true "Signup request"
// @Success 201 {object} tokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req service.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	token, user, err := s.authService.SignUp(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.setTokenCookie(c, token, time.Now().Add(time.Duration(s.config.JWTTTLHours)*time.Hour))
	return c.Status(fiber.StatusCreated).JSON(tokenResponse{Token: token, User: user})
}

// SignIn handles POST /api/auth/signin
// @Summary User signin
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignInInput true "Signin request"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/signin [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req service.SignInInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	token, user, err := s.authService.SignIn(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.setTokenCookie(c, token, time.Now().Add(time.Duration(s.config.JWTTTLHours)*time.Hour))
	return c.JSON(tokenResponse{Token: token, User: user})
}

// SignOut handles POST /api/auth/signout
// @Summary User signout
// @Description Revoke the current token and clear the token cookie
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/signout [post]
func (s *Server) SignOut(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFrom(c)
	if err := s.authService.SignOut(c.UserContext(), claims); err != nil {
		return respondServiceError(c, err)
	}

	s.setTokenCookie(c, "", time.Unix(0, 0))
	return c.JSON(fiber.Map{"message": "Signed out"})
}

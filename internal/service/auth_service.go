package service

import (
	"context"
	"time"

	"overthinkistan/internal/auth"
	"overthinkistan/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints and times bearer tokens.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
	Remaining(claims *auth.Claims) time.Duration
}

// TokenRevoker records revoked token ids.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService handles signup, signin and signout.
type AuthService struct {
	users   *UserService
	tokens  TokenIssuer
	revoker TokenRevoker
}

func NewAuthService(users *UserService, tokens TokenIssuer, revoker TokenRevoker) *AuthService {
	return &AuthService{users: users, tokens: tokens, revoker: revoker}
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Name               string        `json:"name"`
	Surname            string        `json:"surname"`
	Username           string        `json:"username"`
	Email              string        `json:"email"`
	Password           string        `json:"password"`
	ConfirmPassword    string        `json:"confirmPassword"`
	Gender             models.Gender `json:"gender"`
	TermsAndConditions bool          `json:"termsAndConditions"`
}

// SignInInput carries credentials.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an ACTIVE user and returns a token for it. Nothing is
// stored unless every check passes.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (_ string, _ *models.User, err error) {
	ctx, end := s.users.span(ctx, "SignUp")
	defer func() { end(err) }()

	if in.Password != in.ConfirmPassword {
		return "", nil, models.NewValidationError("Passwords do not match")
	}
	if !in.TermsAndConditions {
		return "", nil, models.NewValidationError("Terms and conditions must be accepted")
	}

	user, err := s.users.Create(ctx, &models.User{
		Name:               in.Name,
		Surname:            in.Surname,
		Username:           in.Username,
		Email:              in.Email,
		Password:           in.Password,
		Gender:             in.Gender,
		TermsAndConditions: true,
	}, "")
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, user, nil
}

// SignIn exchanges email and password of an ACTIVE user for a token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (_ string, _ *models.User, err error) {
	ctx, end := s.users.span(ctx, "SignIn")
	defer func() { end(err) }()

	invalid := models.NewUnauthorizedError("Invalid credentials")
	if in.Email == "" || in.Password == "" {
		return "", nil, invalid
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return "", nil, invalid
		}
		return "", nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); cmpErr != nil {
		return "", nil, invalid
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, user, nil
}

// SignOut revokes the presented token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authorization required")
	}
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

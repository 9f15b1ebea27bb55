// Package auth issues and verifies the signed bearer tokens handed to clients.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"overthinkistan/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "overthinkistan-api"
	Audience = "overthinkistan-client"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload embedded in every token. Subject and RefID both hold
// the user's refId; the storage id never leaves the database.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	RefID    string `json:"refId"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer. An empty secret is rejected so a
// misconfigured process cannot mint tokens with a guessable key.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for the given user.
func (i *TokenIssuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RefID:    user.RefID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.RefID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateJTI(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer, audience and time claims.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	tokenString = StripBearer(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.RefID == "" {
		return nil, fmt.Errorf("%w: missing refId claim", ErrInvalidToken)
	}
	if claims.Subject != claims.RefID {
		return nil, fmt.Errorf("%w: subject does not match refId", ErrInvalidToken)
	}
	return claims, nil
}

// Remaining returns how long the token stays valid, for blacklist TTLs.
func (i *TokenIssuer) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return i.ttl
	}
	d := claims.ExpiresAt.Sub(i.now())
	if d < 0 {
		return 0
	}
	return d
}

// StripBearer removes an optional "Bearer " prefix.
func StripBearer(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
}

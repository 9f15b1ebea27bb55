package auth

import (
	"testing"
	"time"

	"overthinkistan/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{
		Record:   models.Record{ID: 7, RefID: "3f1c2b1e-0000-4000-8000-000000000007"},
		Username: "overthinker",
		Role:     models.RoleUser,
	}
}

func TestNewTokenIssuer_RejectsEmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test_secret_that_is_long_enough_123", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "overthinker", claims.Username)
	assert.Equal(t, "3f1c2b1e-0000-4000-8000-000000000007", claims.RefID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, claims.RefID, claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	// Cookie values may carry the scheme prefix.
	claims, err = issuer.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "overthinker", claims.Username)
}

func TestTokenIssuer_Parse_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer("test_secret_that_is_long_enough_123", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("another_secret_that_is_long_enough", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue(testUser())
	require.NoError(t, err)

	expiredIssuer, err := NewTokenIssuer("test_secret_that_is_long_enough_123", time.Hour)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Issue(testUser())
	require.NoError(t, err)

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"refId": "x"})
	unsigned, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	legacy, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RefID: testUser().RefID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(issuer.secret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"storage id subject", legacy},
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "abc", StripBearer("Bearer abc"))
	assert.Equal(t, "abc", StripBearer("bearer abc"))
	assert.Equal(t, "abc", StripBearer("  abc "))
	assert.Equal(t, "", StripBearer("Bearer "))
}

func TestTokenIssuer_Remaining(t *testing.T) {
	issuer, err := NewTokenIssuer("test_secret_that_is_long_enough_123", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(testUser())
	require.NoError(t, err)
	claims, err := issuer.Parse(token)
	require.NoError(t, err)

	remaining := issuer.Remaining(claims)
	assert.True(t, remaining > 59*time.Minute && remaining <= time.Hour)
}

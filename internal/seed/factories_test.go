package seed

import (
	"testing"

	"overthinkistan/internal/models"
	"overthinkistan/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUser_PassesRegistration(t *testing.T) {
	f := NewFactory(42)
	seen := make(map[string]struct{})

	for range 200 {
		u := f.BuildUser()
		require.NoError(t, validation.ValidateRegistration(validation.Registration{
			Name:     u.Name,
			Surname:  u.Surname,
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
			Gender:   u.Gender,
		}), "%+v", u)
		require.NoError(t, validation.ValidateBiography(u.Biography))

		_, dup := seen[u.Username]
		require.False(t, dup, u.Username)
		seen[u.Username] = struct{}{}
	}
}

func TestBuildUser_Deterministic(t *testing.T) {
	a := NewFactory(7).BuildUser()
	b := NewFactory(7).BuildUser()
	assert.Equal(t, a.Username, b.Username)
	assert.Equal(t, a.Biography, b.Biography)

	admin := NewFactory(7).BuildUser(func(u *models.User) { u.Role = models.RoleAdmin })
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestBuildPost_UsesGivenCategories(t *testing.T) {
	f := NewFactory(3)
	categories := []*models.Category{
		{Record: models.Record{RefID: "cat-a"}},
		{Record: models.Record{RefID: "cat-b"}},
		{Record: models.Record{RefID: "cat-c"}},
	}

	for range 50 {
		p := f.BuildPost(categories)
		require.NoError(t, validation.ValidatePostContent(p.Content))
		require.NotEmpty(t, p.CategoryRefIDs)
		assert.LessOrEqual(t, len(p.CategoryRefIDs), 2)
		for _, ref := range p.CategoryRefIDs {
			assert.Contains(t, []string{"cat-a", "cat-b", "cat-c"}, ref)
		}
	}

	bare := f.BuildPost(nil)
	assert.NotNil(t, bare.CategoryRefIDs)
	assert.Empty(t, bare.CategoryRefIDs)
}

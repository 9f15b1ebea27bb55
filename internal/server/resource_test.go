package server

import (
	"testing"

	"overthinkistan/internal/config"
	"overthinkistan/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryResource_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := seedUser(t, s, "the_admin", models.RoleAdmin)

	status, body := call(t, s, fiber.MethodPost, "/api/categories", map[string]any{
		"name":        "Comedy",
		"description": "Jokes",
		"order":       3,
	}, "")
	require.Equal(t, fiber.StatusCreated, status, string(body))
	created := decode[models.Category](t, body)
	require.NotEmpty(t, created.RefID)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.Nil(t, created.CreatedBy)
	assert.Equal(t, 3, created.Order)
	path := "/api/categories/ref/" + created.RefID

	status, body = call(t, s, fiber.MethodGet, path, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Comedy", decode[models.Category](t, body).Name)

	for range 2 {
		status, body = call(t, s, fiber.MethodPut, path, map[string]any{"description": "Puns"}, "")
		require.Equal(t, fiber.StatusOK, status, string(body))
		updated := decode[models.Category](t, body)
		assert.Equal(t, "Puns", updated.Description)
		assert.Equal(t, "Comedy", updated.Name)
	}

	status, body = call(t, s, fiber.MethodGet, "/api/categories", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.Category](t, body), 1)

	status, body = call(t, s, fiber.MethodDelete, path, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	deleted := decode[models.Category](t, body)
	assert.Equal(t, models.StatusDeleted, deleted.Status)
	assert.NotNil(t, deleted.DeletedAt)

	status, body = call(t, s, fiber.MethodGet, path, nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	notFound := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeNotFound, notFound.Code)
	assert.Equal(t, "Category with RefID "+created.RefID+" not found", notFound.Error)

	status, _ = call(t, s, fiber.MethodDelete, path, nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, s, fiber.MethodDelete, path+"/hard", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = call(t, s, fiber.MethodDelete, path+"/hard", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]bool{"deleted": true}, decode[map[string]bool](t, body))

	status, body = call(t, s, fiber.MethodDelete, path+"/hard", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]bool{"deleted": false}, decode[map[string]bool](t, body))
}

func TestResource_HardDeleteRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	_, token := seedUser(t, s, "regular", models.RoleUser)

	status, body := call(t, s, fiber.MethodDelete, "/api/posts/ref/whatever/hard", nil, token)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, body).Code)
}

func TestResource_UnknownRefID(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/users/ref/missing", "/api/posts/ref/missing", "/api/categories/ref/missing"} {
		status, body := call(t, s, fiber.MethodGet, path, nil, "")
		assert.Equal(t, fiber.StatusNotFound, status, path)
		assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code, path)
	}

	status, _ := call(t, s, fiber.MethodPut, "/api/posts/ref/missing", map[string]any{"content": "x"}, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestResource_LifecycleFieldsAreNotBound(t *testing.T) {
	s := newTestServer(t)

	status, body := call(t, s, fiber.MethodPost, "/api/posts", map[string]any{
		"content":   "mine",
		"refId":     "chosen-by-client",
		"status":    "DELETED",
		"createdBy": "someone-else",
		"likeCount": 99,
	}, "")
	require.Equal(t, fiber.StatusCreated, status, string(body))
	post := decode[models.Post](t, body)
	assert.NotEqual(t, "chosen-by-client", post.RefID)
	assert.Equal(t, models.StatusActive, post.Status)
	assert.Nil(t, post.CreatedBy)
	assert.Zero(t, post.LikeCount)
}

func TestResource_ActorComesFromToken(t *testing.T) {
	s := newTestServer(t)
	author, token := seedUser(t, s, "author_one", models.RoleUser)

	status, body := call(t, s, fiber.MethodPost, "/api/posts", map[string]any{"content": "signed"}, token)
	require.Equal(t, fiber.StatusCreated, status)
	post := decode[models.Post](t, body)
	require.NotNil(t, post.CreatedBy)
	assert.Equal(t, author.RefID, *post.CreatedBy)

	status, body = call(t, s, fiber.MethodPut, "/api/posts/ref/"+post.RefID, map[string]any{"content": "edited"}, token)
	require.Equal(t, fiber.StatusOK, status)
	edited := decode[models.Post](t, body)
	require.NotNil(t, edited.UpdatedBy)
	assert.Equal(t, author.RefID, *edited.UpdatedBy)

	status, body = call(t, s, fiber.MethodPost, "/api/posts", map[string]any{"content": "garbled"}, "not-a-jwt")
	require.Equal(t, fiber.StatusCreated, status)
	assert.Nil(t, decode[models.Post](t, body).CreatedBy)
}

func TestResource_DeletedUserWritesAnonymously(t *testing.T) {
	s := newTestServer(t)
	user, token := seedUser(t, s, "departed", models.RoleUser)

	status, _ := call(t, s, fiber.MethodDelete, "/api/users/ref/"+user.RefID, nil, token)
	require.Equal(t, fiber.StatusOK, status)

	status, body := call(t, s, fiber.MethodPost, "/api/posts", map[string]any{"content": "from beyond"}, token)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	assert.Nil(t, decode[models.Post](t, body).CreatedBy)

	status, body = call(t, s, fiber.MethodPost, "/api/categories", map[string]any{"name": "Afterlife"}, token)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	assert.Nil(t, decode[models.Category](t, body).CreatedBy)

	_, body = call(t, s, fiber.MethodGet, "/api/posts/get-all-posts-with-relations", nil, "")
	views := decode[[]models.PostWithRelations](t, body)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].User)
}

func TestResource_AnonymousWritesFlagOff(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.FeatureFlags = "anonymous_writes=off"
	})
	_, token := seedUser(t, s, "gatekeeper", models.RoleUser)

	status, _ := call(t, s, fiber.MethodPost, "/api/categories", map[string]any{"name": "Closed"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := call(t, s, fiber.MethodPost, "/api/categories", map[string]any{"name": "Open"}, token)
	require.Equal(t, fiber.StatusCreated, status, string(body))

	status, body = call(t, s, fiber.MethodGet, "/api/categories", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.Category](t, body), 1)
}

func TestUserResource_OnlySelfOrAdminMutates(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := seedUser(t, s, "alice", models.RoleUser)
	bob, _ := seedUser(t, s, "bobby", models.RoleUser)
	_, adminToken := seedUser(t, s, "root_admin", models.RoleAdmin)

	status, _ := call(t, s, fiber.MethodPut, "/api/users/ref/"+bob.RefID, map[string]any{"biography": "hacked"}, aliceToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, s, fiber.MethodPut, "/api/users/ref/"+alice.RefID, map[string]any{"biography": "self"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := call(t, s, fiber.MethodPut, "/api/users/ref/"+alice.RefID, map[string]any{"biography": "about me"}, aliceToken)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "about me", decode[models.User](t, body).Biography)

	status, body = call(t, s, fiber.MethodPut, "/api/users/ref/"+alice.RefID, map[string]any{"email": "broken"}, aliceToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)

	status, _ = call(t, s, fiber.MethodDelete, "/api/users/ref/"+bob.RefID, nil, adminToken)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestUserResource_CreateHashesPassword(t *testing.T) {
	s := newTestServer(t)

	status, body := call(t, s, fiber.MethodPost, "/api/users", map[string]any{
		"name":     "Linus",
		"surname":  "Torvalds",
		"username": "linus",
		"email":    "linus@example.com",
		"password": "Kernel1991",
		"role":     models.RoleAdmin,
	}, "")
	require.Equal(t, fiber.StatusCreated, status, string(body))
	created := decode[models.User](t, body)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.NotContains(t, string(body), "Kernel1991")

	status, body = call(t, s, fiber.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "linus@example.com",
		"password": "Kernel1991",
	}, "")
	assert.Equal(t, fiber.StatusOK, status, string(body))
}

package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"overthinkistan/internal/models"
	"overthinkistan/internal/storage"
	"overthinkistan/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, path, filename string, data []byte, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, path, &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func createPost(t *testing.T, s *Server, body map[string]any, token string) models.Post {
	t.Helper()
	status, raw := call(t, s, fiber.MethodPost, "/api/posts", body, token)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	return decode[models.Post](t, raw)
}

func TestPosts_ComedyScenario(t *testing.T) {
	s := newTestServer(t)
	author, token := seedUser(t, s, "comedian", models.RoleUser)

	status, raw := call(t, s, fiber.MethodPost, "/api/categories", map[string]any{"name": "Comedy"}, token)
	require.Equal(t, fiber.StatusCreated, status)
	comedy := decode[models.Category](t, raw)

	joke := createPost(t, s, map[string]any{
		"content":        "Why did the gopher cross the road?",
		"categoryRefIds": []string{comedy.RefID},
	}, token)
	createPost(t, s, map[string]any{"content": "No category here"}, token)

	status, raw = call(t, s, fiber.MethodGet, "/api/posts/category/"+comedy.RefID, nil, token)
	require.Equal(t, fiber.StatusOK, status)
	feed := decode[models.PostList](t, raw)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, joke.RefID, feed.Posts[0].RefID)

	status, raw = call(t, s, fiber.MethodGet, "/api/posts/get-all-posts-with-relations", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	views := decode[[]models.PostWithRelations](t, raw)
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotNil(t, v.User)
		assert.Equal(t, author.Username, v.User.Username)
		if v.RefID == joke.RefID {
			require.Len(t, v.Categories, 1)
			assert.Equal(t, "Comedy", v.Categories[0].Name)
		}
	}

	status, _ = call(t, s, fiber.MethodDelete, "/api/categories/ref/"+comedy.RefID, nil, token)
	require.Equal(t, fiber.StatusOK, status)

	_, raw = call(t, s, fiber.MethodGet, "/api/posts/get-all-posts-with-relations", nil, "")
	for _, v := range decode[[]models.PostWithRelations](t, raw) {
		assert.NotNil(t, v.Categories)
		assert.Empty(t, v.Categories)
	}
	assert.Contains(t, string(raw), `"categories":[]`)
}

func TestPosts_LikeAndDislike(t *testing.T) {
	s := newTestServer(t)
	_, token := seedUser(t, s, "reactor", models.RoleUser)
	post := createPost(t, s, map[string]any{"content": "rate me"}, "")

	status, _ := call(t, s, fiber.MethodPost, "/api/posts/"+post.RefID+"/like", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	for range 3 {
		status, _ = call(t, s, fiber.MethodPost, "/api/posts/"+post.RefID+"/like", nil, token)
		require.Equal(t, fiber.StatusOK, status)
	}
	status, raw := call(t, s, fiber.MethodPost, "/api/posts/"+post.RefID+"/dislike", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	reacted := decode[models.Post](t, raw)
	assert.Equal(t, 3, reacted.LikeCount)
	assert.Equal(t, 1, reacted.DislikeCount)

	status, raw = call(t, s, fiber.MethodPost, "/api/posts/missing/like", nil, token)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Post with RefID missing not found", decode[models.ErrorResponse](t, raw).Error)
}

func TestPosts_CountersFollowLifecycle(t *testing.T) {
	s := newTestServer(t)
	author, token := seedUser(t, s, "prolific", models.RoleUser)

	first := createPost(t, s, map[string]any{"content": "one"}, token)
	createPost(t, s, map[string]any{"content": "two"}, token)

	_, raw := call(t, s, fiber.MethodGet, "/api/users/ref/"+author.RefID, nil, "")
	assert.Equal(t, 2, decode[models.User](t, raw).PostCount)

	status, _ := call(t, s, fiber.MethodDelete, "/api/posts/ref/"+first.RefID, nil, token)
	require.Equal(t, fiber.StatusOK, status)

	_, raw = call(t, s, fiber.MethodGet, "/api/users/ref/"+author.RefID, nil, "")
	assert.Equal(t, 1, decode[models.User](t, raw).PostCount)

	status, raw = call(t, s, fiber.MethodGet, "/api/posts/user/"+author.RefID, nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[models.PostList](t, raw).Posts, 1)
}

func TestPosts_Search(t *testing.T) {
	s := newTestServer(t)
	createPost(t, s, map[string]any{"content": "Overthinking about gophers"}, "")
	createPost(t, s, map[string]any{"content": "Unrelated"}, "")

	status, raw := call(t, s, fiber.MethodGet, "/api/posts/search?q=GOPHER", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[models.PostList](t, raw).Posts, 1)

	status, raw = call(t, s, fiber.MethodGet, "/api/posts/search?q=%20", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)
}

func TestPosts_UploadAndSetPhoto(t *testing.T) {
	s := newTestServer(t)
	_, token := seedUser(t, s, "photog", models.RoleUser)
	post := createPost(t, s, map[string]any{"content": "look"}, token)

	status, _ := send(t, s, uploadRequest(t, "/api/posts/upload-post-photo", "pic.png", testutil.TinyPNG(t, 8, 8), ""))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := send(t, s, uploadRequest(t, "/api/posts/upload-post-photo", "pic.png", testutil.TinyPNG(t, 8, 8), token))
	require.Equal(t, fiber.StatusOK, status, string(raw))
	res := decode[storage.Result](t, raw)
	assert.True(t, strings.HasPrefix(res.URL, storage.PublicPrefix+"/posts/"), res.URL)
	assert.True(t, strings.HasSuffix(res.URL, ".png"), res.URL)

	status, _ = call(t, s, fiber.MethodGet, res.URL, nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, raw = call(t, s, fiber.MethodPut, "/api/posts/ref/"+post.RefID+"/photo", map[string]string{"postPhoto": res.URL}, token)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, res.URL, decode[models.Post](t, raw).PhotoURL)

	status, raw = send(t, s, uploadRequest(t, "/api/posts/upload-post-photo", "notes.txt", []byte("plain text"), token))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)
}

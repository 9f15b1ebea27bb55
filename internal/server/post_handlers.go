package server

import (
	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content        string   `json:"content"`
	CategoryRefIDs []string `json:"categoryRefIds"`
	IsAnonymous    bool     `json:"isAnonymous"`
	PhotoURL       string   `json:"photoUrl"`
}

type updatePostRequest struct {
	Content        *string   `json:"content"`
	CategoryRefIDs *[]string `json:"categoryRefIds"`
	IsAnonymous    *bool     `json:"isAnonymous"`
	PhotoURL       *string   `json:"photoUrl"`
}

func (s *Server) postResource() *resource[models.Post] {
	return &resource[models.Post]{
		svc:  s.postService,
		auth: s.auth,
		decodeCreate: func(c *fiber.Ctx) (*models.Post, error) {
			var req createPostRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			return &models.Post{
				Content:        req.Content,
				CategoryRefIDs: models.StringList(req.CategoryRefIDs),
				IsAnonymous:    req.IsAnonymous,
				PhotoURL:       req.PhotoURL,
			}, nil
		},
		decodeUpdate: func(c *fiber.Ctx) (repository.Changes, error) {
			var req updatePostRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			changes := repository.Changes{}
			setIfPresent(changes, "content", req.Content)
			if req.CategoryRefIDs != nil {
				changes["category_ref_ids"] = models.StringList(*req.CategoryRefIDs)
			}
			setIfPresent(changes, "is_anonymous", req.IsAnonymous)
			setIfPresent(changes, "photo_url", req.PhotoURL)
			return changes, nil
		},
	}
}

// LikePost handles POST /api/posts/:refId/like
// @Summary Like a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param refId path string true "Post refId"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{refId}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	actor, _ := c.Locals(middleware.LocalUserRefID).(string)
	post, err := s.postService.Like(c.UserContext(), c.Params("refId"), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DislikePost handles POST /api/posts/:refId/dislike
// @Summary Dislike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param refId path string true "Post refId"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{refId}/dislike [post]
func (s *Server) DislikePost(c *fiber.Ctx) error {
	actor, _ := c.Locals(middleware.LocalUserRefID).(string)
	post, err := s.postService.Dislike(c.UserContext(), c.Params("refId"), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/posts/user/:userRefId
// @Summary Posts of a user
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param userRefId path string true "Author refId"
// @Success 200 {object} models.PostList
// @Router /posts/user/{userRefId} [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	list, err := s.postService.GetUserPosts(c.UserContext(), c.Params("userRefId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// GetCategoryPosts handles GET /api/posts/category/:categoryRefId
// @Summary Posts in a category
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param categoryRefId path string true "Category refId"
// @Success 200 {object} models.PostList
// @Router /posts/category/{categoryRefId} [get]
func (s *Server) GetCategoryPosts(c *fiber.Ctx) error {
	list, err := s.postService.GetCategoryPosts(c.UserContext(), c.Params("categoryRefId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Tags posts
// @Produce json
// @Param q query string true "Text to look for in the content"
// @Param limit query int false "Maximum number of posts"
// @Success 200 {object} models.PostList
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	list, err := s.postService.Search(c.UserContext(), c.Query("q"), parseLimit(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// GetAllPostsWithRelations handles GET /api/posts/get-all-posts-with-relations
// @Summary Posts with their categories and author
// @Tags posts
// @Produce json
// @Success 200 {array} models.PostWithRelations
// @Router /posts/get-all-posts-with-relations [get]
func (s *Server) GetAllPostsWithRelations(c *fiber.Ctx) error {
	views, err := s.postService.GetAllPostsWithRelations(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// UploadPostPhoto handles POST /api/posts/upload-post-photo
// @Summary Upload a post photo
// @Description Store an image; the returned URL can be set on a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file (jpg, jpeg, png, gif)"
// @Success 200 {object} storage.Result
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/upload-post-photo [post]
func (s *Server) UploadPostPhoto(c *fiber.Ctx) error {
	name, data, err := readUpload(c, s.config.UploadMaxBytes)
	if err != nil {
		return respondServiceError(c, err)
	}

	res, err := s.postService.UploadPostPhoto(c.UserContext(), name, data)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

// UpdatePostPhoto handles PUT /api/posts/ref/:refId/photo
// @Summary Set a post photo URL
// @Tags posts
// @Accept json
// @Produce json
// @Param refId path string true "Post refId"
// @Param request body object{postPhoto=string} true "Photo URL"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/ref/{refId}/photo [put]
func (s *Server) UpdatePostPhoto(c *fiber.Ctx) error {
	var req struct {
		PostPhoto string `json:"postPhoto"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	post, err := s.postService.UpdatePostPhoto(c.UserContext(), c.Params("refId"), req.PostPhoto, s.auth.ActorRefID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

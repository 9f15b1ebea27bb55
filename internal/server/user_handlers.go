package server

import (
	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type createUserRequest struct {
	Name               string        `json:"name"`
	Surname            string        `json:"surname"`
	Username           string        `json:"username"`
	Email              string        `json:"email"`
	Password           string        `json:"password"`
	Biography          string        `json:"biography"`
	Gender             models.Gender `json:"gender"`
	ProfilePhoto       string        `json:"profilePhoto"`
	TermsAndConditions bool          `json:"termsAndConditions"`
}

type updateUserRequest struct {
	Name         *string `json:"name"`
	Surname      *string `json:"surname"`
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	Biography    *string `json:"biography"`
	Gender       *string `json:"gender"`
	ProfilePhoto *string `json:"profilePhoto"`
}

func (s *Server) userResource() *resource[models.User] {
	return &resource[models.User]{
		svc:  s.userService,
		auth: s.auth,
		decodeCreate: func(c *fiber.Ctx) (*models.User, error) {
			var req createUserRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			return &models.User{
				Name:               req.Name,
				Surname:            req.Surname,
				Username:           req.Username,
				Email:              req.Email,
				Password:           req.Password,
				Biography:          req.Biography,
				Gender:             req.Gender,
				ProfilePhoto:       req.ProfilePhoto,
				TermsAndConditions: req.TermsAndConditions,
			}, nil
		},
		decodeUpdate: func(c *fiber.Ctx) (repository.Changes, error) {
			var req updateUserRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			changes := repository.Changes{}
			setIfPresent(changes, "name", req.Name)
			setIfPresent(changes, "surname", req.Surname)
			setIfPresent(changes, "username", req.Username)
			setIfPresent(changes, "email", req.Email)
			setIfPresent(changes, "password", req.Password)
			setIfPresent(changes, "biography", req.Biography)
			setIfPresent(changes, "gender", req.Gender)
			setIfPresent(changes, "profile_photo", req.ProfilePhoto)
			return changes, nil
		},
	}
}

func setIfPresent[V any](changes repository.Changes, column string, v *V) {
	if v != nil {
		changes[column] = *v
	}
}

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	refID, _ := c.Locals(middleware.LocalUserRefID).(string)
	user, err := s.userService.GetByRefID(c.UserContext(), refID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UploadProfilePhoto handles POST /api/users/upload-profile-photo
// @Summary Upload profile photo
// @Description Store an image and make it the caller's profile photo
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file (jpg, jpeg, png, gif)"
// @Success 200 {object} storage.Result
// @Failure 400 {object} models.ErrorResponse
// @Router /users/upload-profile-photo [post]
func (s *Server) UploadProfilePhoto(c *fiber.Ctx) error {
	refID, _ := c.Locals(middleware.LocalUserRefID).(string)
	name, data, err := readUpload(c, s.config.UploadMaxBytes)
	if err != nil {
		return respondServiceError(c, err)
	}

	_, res, err := s.userService.UploadProfilePhoto(c.UserContext(), refID, name, data)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

// UpdateProfilePhoto handles PUT /api/users/profile-photo
// @Summary Set profile photo URL
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{profilePhoto=string} true "Photo URL"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/profile-photo [put]
func (s *Server) UpdateProfilePhoto(c *fiber.Ctx) error {
	var req struct {
		ProfilePhoto string `json:"profilePhoto"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	refID, _ := c.Locals(middleware.LocalUserRefID).(string)
	user, err := s.userService.UpdateProfilePhoto(c.UserContext(), refID, req.ProfilePhoto, refID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

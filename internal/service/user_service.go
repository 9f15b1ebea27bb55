package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/storage"
	"overthinkistan/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

var errUploadsDisabled = errors.New("uploads are not configured")

// ImageUploader stores validated images and reports their public URLs.
type ImageUploader interface {
	Upload(ctx context.Context, purpose storage.Purpose, filename string, data []byte) (*storage.Result, error)
}

type UserService struct {
	*RecordService[models.User]
	users    repository.UserRepository
	uploader ImageUploader
}

func NewUserService(users repository.UserRepository, uploader ImageUploader) *UserService {
	return &UserService{
		RecordService: NewRecordService[models.User](users, "UserService"),
		users:         users,
		uploader:      uploader,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}
	return string(hashed), nil
}

// Create registers user with a plaintext Password. The password is hashed,
// the email normalized and the counters zeroed before storing.
func (s *UserService) Create(ctx context.Context, user *models.User, actorRefID string) (_ *models.User, err error) {
	ctx, end := s.span(ctx, "Create")
	defer func() { end(err) }()

	user.Email = models.NormalizeEmail(user.Email)
	user.Username = strings.TrimSpace(user.Username)
	if err := validation.ValidateRegistration(validation.Registration{
		Name:     user.Name,
		Surname:  user.Surname,
		Username: user.Username,
		Email:    user.Email,
		Password: user.Password,
		Gender:   user.Gender,
	}); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBiography(user.Biography); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	emailTaken, usernameTaken, err := s.users.ExistsByEmailOrUsername(ctx, user.Email, user.Username)
	if err != nil {
		return nil, err
	}
	switch {
	case emailTaken:
		return nil, models.NewConflictError("Email is already in use", nil)
	case usernameTaken:
		return nil, models.NewConflictError("Username is already in use", nil)
	}

	hashed, err := hashPassword(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed
	user.FollowersCount = 0
	user.FollowingCount = 0
	user.PostCount = 0
	if user.Gender == "" {
		user.Gender = models.GenderPreferNotToSay
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if err := s.users.Create(ctx, user, actorRefID); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateByRefID validates the profile columns it knows and hashes a new
// password before handing the changes to the repository.
func (s *UserService) UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actorRefID string) (_ *models.User, err error) {
	ctx, end := s.span(ctx, "UpdateByRefID")
	defer func() { end(err) }()

	if err := validateUserChanges(changes); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if raw, ok := changes["password"]; ok {
		hashed, err := hashPassword(raw.(string))
		if err != nil {
			return nil, err
		}
		changes["password"] = hashed
	}
	return s.users.UpdateByRefID(ctx, refID, changes, actorRefID)
}

func validateUserChanges(changes repository.Changes) error {
	for col, v := range changes {
		switch col {
		case "role", "followers_count", "following_count", "post_count":
			return fmt.Errorf("%s cannot be changed", col)
		}
		str, isString := v.(string)
		if !isString {
			continue
		}
		var err error
		switch col {
		case "name", "surname":
			err = validation.ValidateName(col, str)
		case "username":
			err = validation.ValidateUsername(str)
		case "email":
			changes[col] = models.NormalizeEmail(str)
			err = validation.ValidateEmail(models.NormalizeEmail(str))
		case "password":
			err = validation.ValidatePassword(str)
		case "biography":
			err = validation.ValidateBiography(str)
		case "gender":
			err = validation.ValidateGender(models.Gender(str))
		}
		if err != nil {
			return err
		}
	}
	if v, ok := changes["password"]; ok {
		if _, isString := v.(string); !isString {
			return fmt.Errorf("password must be a string")
		}
	}
	return nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// IsActive backs the authenticator's active-user check.
func (s *UserService) IsActive(ctx context.Context, refID string) (bool, error) {
	return s.users.IsActive(ctx, refID)
}

// UpdateProfilePhoto points the user's profile photo at url.
func (s *UserService) UpdateProfilePhoto(ctx context.Context, refID, url, actorRefID string) (_ *models.User, err error) {
	ctx, end := s.span(ctx, "UpdateProfilePhoto")
	defer func() { end(err) }()

	if strings.TrimSpace(url) == "" {
		return nil, models.NewValidationError("profilePhoto is required")
	}
	return s.users.UpdateByRefID(ctx, refID, repository.Changes{"profile_photo": url}, actorRefID)
}

// UploadProfilePhoto stores an image and makes it the user's profile photo.
func (s *UserService) UploadProfilePhoto(ctx context.Context, refID, filename string, data []byte) (_ *models.User, _ *storage.Result, err error) {
	ctx, end := s.span(ctx, "UploadProfilePhoto")
	defer func() { end(err) }()

	if s.uploader == nil {
		return nil, nil, models.NewInternalError(errUploadsDisabled)
	}
	if _, err := s.users.GetByRefID(ctx, refID); err != nil {
		return nil, nil, err
	}
	res, err := s.uploader.Upload(ctx, storage.PurposeProfile, filename, data)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.UpdateByRefID(ctx, refID, repository.Changes{"profile_photo": res.URL}, refID)
	if err != nil {
		return nil, nil, err
	}
	return user, res, nil
}

// ReconcilePostCounts repairs drifted post counters and returns how many
// users were corrected.
func (s *UserService) ReconcilePostCounts(ctx context.Context) (_ int64, err error) {
	ctx, end := s.span(ctx, "ReconcilePostCounts")
	defer func() { end(err) }()
	return s.users.ReconcilePostCounts(ctx)
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/notifications"
	"overthinkistan/internal/observability"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/storage"
	"overthinkistan/internal/validation"
)

// PostPublisher fans post events out to feed subscribers.
type PostPublisher interface {
	PublishPost(ctx context.Context, ev notifications.PostEvent) error
}

type PostService struct {
	*RecordService[models.Post]
	posts      repository.PostRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	events     PostPublisher
	uploader   ImageUploader
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	events PostPublisher,
	uploader ImageUploader,
) *PostService {
	return &PostService{
		RecordService: NewRecordService[models.Post](posts, "PostService"),
		posts:         posts,
		users:         users,
		categories:    categories,
		events:        events,
		uploader:      uploader,
	}
}

func (s *PostService) publish(ctx context.Context, eventType string, post *models.Post, actorRefID string) {
	if s.events == nil || post == nil {
		return
	}
	if err := s.events.PublishPost(ctx, notifications.NewPostEvent(eventType, post, actorRefID)); err != nil {
		middleware.Logger.WarnContext(ctx, "publish post event failed",
			slog.String("type", eventType),
			slog.String("ref_id", post.RefID),
			slog.String("error", err.Error()))
	}
}

// adjustAuthorPosts keeps the author's post counter in step. The counter is
// denormalized, so failures are logged and left for reconciliation.
func (s *PostService) adjustAuthorPosts(ctx context.Context, authorRefID string, delta int) {
	if s.users == nil || authorRefID == "" {
		return
	}
	if err := s.users.AdjustPostCount(ctx, authorRefID, delta); err != nil {
		middleware.Logger.WarnContext(ctx, "adjust post count failed",
			slog.String("user_ref_id", authorRefID),
			slog.Int("delta", delta),
			slog.String("error", err.Error()))
	}
}

// Create stores a post. A missing category list is stored as empty and
// the author's post counter is incremented.
func (s *PostService) Create(ctx context.Context, post *models.Post, actorRefID string) (_ *models.Post, err error) {
	ctx, end := s.span(ctx, "Create")
	defer func() { end(err) }()

	if err := validation.ValidatePostContent(post.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if post.CategoryRefIDs == nil {
		post.CategoryRefIDs = models.StringList{}
	}
	post.LikeCount, post.DislikeCount = 0, 0
	post.CommentCount, post.ViewCount = 0, 0

	if err := s.posts.Create(ctx, post, actorRefID); err != nil {
		return nil, err
	}
	s.adjustAuthorPosts(ctx, post.AuthorRefID(), 1)
	s.publish(ctx, notifications.PostCreated, post, actorRefID)
	return post, nil
}

func (s *PostService) UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actorRefID string) (_ *models.Post, err error) {
	ctx, end := s.span(ctx, "UpdateByRefID")
	defer func() { end(err) }()

	if v, ok := changes["content"]; ok {
		content, _ := v.(string)
		if err := validation.ValidatePostContent(content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	for _, col := range []string{"like_count", "dislike_count", "comment_count", "view_count"} {
		delete(changes, col)
	}

	post, err := s.posts.UpdateByRefID(ctx, refID, changes, actorRefID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifications.PostUpdated, post, actorRefID)
	return post, nil
}

// SoftDeleteByRefID hides the post and decrements the author's counter.
func (s *PostService) SoftDeleteByRefID(ctx context.Context, refID, actorRefID string) (_ *models.Post, err error) {
	ctx, end := s.span(ctx, "SoftDeleteByRefID")
	defer func() { end(err) }()

	post, err := s.posts.SoftDeleteByRefID(ctx, refID, actorRefID)
	if err != nil {
		return nil, err
	}
	s.adjustAuthorPosts(ctx, post.AuthorRefID(), -1)
	s.publish(ctx, notifications.PostDeleted, post, actorRefID)
	return post, nil
}

// HardDeleteByRefID removes the row. The author's counter only moves when
// the post was still ACTIVE.
func (s *PostService) HardDeleteByRefID(ctx context.Context, refID string) (_ bool, err error) {
	ctx, end := s.span(ctx, "HardDeleteByRefID")
	defer func() { end(err) }()

	visible, lookupErr := s.posts.GetByRefID(ctx, refID)
	if lookupErr != nil && !models.IsCode(lookupErr, models.CodeNotFound) {
		return false, lookupErr
	}
	deleted, err := s.posts.HardDeleteByRefID(ctx, refID)
	if err != nil {
		return false, err
	}
	if deleted && visible != nil {
		s.adjustAuthorPosts(ctx, visible.AuthorRefID(), -1)
		s.publish(ctx, notifications.PostDeleted, visible, "")
	}
	return deleted, nil
}

// Like atomically increments the like counter of an ACTIVE post.
func (s *PostService) Like(ctx context.Context, refID, actorRefID string) (_ *models.Post, err error) {
	ctx, end := s.span(ctx, "Like")
	defer func() { end(err) }()

	post, err := s.posts.Like(ctx, refID)
	if err != nil {
		return nil, err
	}
	observability.PostReactions.WithLabelValues("like").Inc()
	s.publish(ctx, notifications.PostLiked, post, actorRefID)
	return post, nil
}

// Dislike atomically increments the dislike counter of an ACTIVE post.
func (s *PostService) Dislike(ctx context.Context, refID, actorRefID string) (_ *models.Post, err error) {
	ctx, end := s.span(ctx, "Dislike")
	defer func() { end(err) }()

	post, err := s.posts.Dislike(ctx, refID)
	if err != nil {
		return nil, err
	}
	observability.PostReactions.WithLabelValues("dislike").Inc()
	s.publish(ctx, notifications.PostDisliked, post, actorRefID)
	return post, nil
}

func (s *PostService) GetUserPosts(ctx context.Context, userRefID string) (_ *models.PostList, err error) {
	ctx, end := s.span(ctx, "GetUserPosts")
	defer func() { end(err) }()

	posts, err := s.posts.ListByAuthor(ctx, userRefID)
	if err != nil {
		return nil, err
	}
	return &models.PostList{Posts: posts}, nil
}

func (s *PostService) GetCategoryPosts(ctx context.Context, categoryRefID string) (_ *models.PostList, err error) {
	ctx, end := s.span(ctx, "GetCategoryPosts")
	defer func() { end(err) }()

	posts, err := s.posts.ListByCategory(ctx, categoryRefID)
	if err != nil {
		return nil, err
	}
	return &models.PostList{Posts: posts}, nil
}

func (s *PostService) Search(ctx context.Context, query string, limit int) (_ *models.PostList, err error) {
	ctx, end := s.span(ctx, "Search")
	defer func() { end(err) }()

	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	posts, err := s.posts.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, err
	}
	return &models.PostList{Posts: posts}, nil
}

// GetAllPostsWithRelations resolves categories and authors of every ACTIVE
// post with one batched lookup per kind. Categories that do not resolve are
// dropped; an author that does not resolve is reported as nil.
func (s *PostService) GetAllPostsWithRelations(ctx context.Context) (_ []*models.PostWithRelations, err error) {
	ctx, end := s.span(ctx, "GetAllPostsWithRelations")
	defer func() { end(err) }()

	posts, err := s.posts.ListActive(ctx, nil)
	if err != nil {
		return nil, err
	}

	categoryIDs := make([]string, 0)
	authorIDs := make([]string, 0)
	seenCategory := make(map[string]struct{})
	seenAuthor := make(map[string]struct{})
	for _, p := range posts {
		for _, ref := range p.CategoryRefIDs {
			if _, ok := seenCategory[ref]; !ok {
				seenCategory[ref] = struct{}{}
				categoryIDs = append(categoryIDs, ref)
			}
		}
		if ref := p.AuthorRefID(); ref != "" {
			if _, ok := seenAuthor[ref]; !ok {
				seenAuthor[ref] = struct{}{}
				authorIDs = append(authorIDs, ref)
			}
		}
	}

	categories, err := s.categories.ListByRefIDs(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	categoryByRef := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		categoryByRef[c.RefID] = c
	}

	authors, err := s.users.ListByRefIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	authorByRef := make(map[string]*models.User, len(authors))
	for _, u := range authors {
		authorByRef[u.RefID] = u
	}

	out := make([]*models.PostWithRelations, 0, len(posts))
	for _, p := range posts {
		view := &models.PostWithRelations{Post: p, Categories: make([]models.CategorySummary, 0, len(p.CategoryRefIDs))}
		for _, ref := range p.CategoryRefIDs {
			if c, ok := categoryByRef[ref]; ok {
				view.Categories = append(view.Categories, models.CategorySummary{
					RefID:       c.RefID,
					Name:        c.Name,
					Description: c.Description,
				})
			}
		}
		if u, ok := authorByRef[p.AuthorRefID()]; ok {
			view.User = &models.UserSummary{
				RefID:           u.RefID,
				Username:        u.Username,
				ProfilePhotoURL: u.ProfilePhoto,
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// UpdatePostPhoto points the post photo at url.
func (s *PostService) UpdatePostPhoto(ctx context.Context, refID, url, actorRefID string) (*models.Post, error) {
	if strings.TrimSpace(url) == "" {
		return nil, models.NewValidationError("postPhoto is required")
	}
	return s.UpdateByRefID(ctx, refID, repository.Changes{"photo_url": url}, actorRefID)
}

// UploadPostPhoto stores an image for later use as a post photo.
func (s *PostService) UploadPostPhoto(ctx context.Context, filename string, data []byte) (_ *storage.Result, err error) {
	ctx, end := s.span(ctx, "UploadPostPhoto")
	defer func() { end(err) }()

	if s.uploader == nil {
		return nil, models.NewInternalError(errUploadsDisabled)
	}
	return s.uploader.Upload(ctx, storage.PurposePost, filename, data)
}

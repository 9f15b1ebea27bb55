package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/observability"

	"github.com/google/uuid"
)

// Purpose selects the key prefix of an upload.
type Purpose string

const (
	PurposeProfile Purpose = "profile"
	PurposePost    Purpose = "post"
)

func (p Purpose) prefix() string {
	if p == PurposePost {
		return "posts/"
	}
	return ""
}

const (
	DefaultMaxBytes  = 5 * 1024 * 1024
	DefaultMaxPixels = 40_000_000
)

// UploadOptions controls validation and image processing.
type UploadOptions struct {
	MaxBytes     int64
	MaxDimension int
	MaxPixels    int64
	WebPVariants bool
}

// Uploader validates images and writes them to a Store.
type Uploader struct {
	store Store
	opts  UploadOptions
}

// Result is what an upload produced. WebPURL is empty when no companion was written.
type Result struct {
	URL     string `json:"url"`
	WebPURL string `json:"webpUrl,omitempty"`
}

func NewUploader(store Store, opts UploadOptions) *Uploader {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	return &Uploader{store: store, opts: opts}
}

// Upload stores data as <uuid><ext> under the purpose prefix.
func (u *Uploader) Upload(ctx context.Context, purpose Purpose, filename string, data []byte) (_ *Result, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "Uploader", "Upload")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
			if !models.IsCode(err, models.CodeValidation) {
				outcome = "error"
			}
		}
		observability.UploadsTotal.WithLabelValues(string(purpose), outcome).Inc()
		observability.EndSpan(span, err)
	}()

	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > u.opts.MaxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", u.opts.MaxBytes/(1024*1024)))
	}

	ext, contentType, err := DetectImage(filename, data)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := CheckPixels(data, u.opts.MaxPixels); err != nil {
		if errors.Is(err, ErrTooManyPixels) {
			return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %d megapixels)", u.opts.MaxPixels/1_000_000))
		}
		return nil, models.NewValidationError("Invalid image file")
	}

	body, decoded, err := DownscaleStill(data, contentType, u.opts.MaxDimension)
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	name := uuid.NewString()
	key := purpose.prefix() + name + ext
	url, err := u.store.Put(ctx, key, contentType, body)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	res := &Result{URL: url}

	if u.opts.WebPVariants && decoded != nil {
		res.WebPURL = u.putWebP(ctx, purpose.prefix()+name+".webp", decoded)
	}
	return res, nil
}

// putWebP is best-effort; the original upload already succeeded.
func (u *Uploader) putWebP(ctx context.Context, key string, img image.Image) string {
	encoded, err := encodeWebP(img)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "webp encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	url, err := u.store.Put(ctx, key, "image/webp", encoded)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "webp upload failed", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	return url
}

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	JPEGQuality = 85
	WebPQuality = 75
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// DetectImage checks the file name extension and the sniffed content type
// and returns the normalized extension and MIME type.
func DetectImage(filename string, data []byte) (ext, contentType string, err error) {
	ext = strings.ToLower(filepath.Ext(filename))
	want, ok := allowedExtensions[ext]
	if !ok {
		return "", "", fmt.Errorf("unsupported file type; only jpg, jpeg, png and gif are accepted")
	}
	sniffed := http.DetectContentType(data)
	if sniffed != want {
		return "", "", fmt.Errorf("file content (%s) does not match its %s extension", sniffed, ext)
	}
	return ext, want, nil
}

// ErrTooManyPixels is returned for images whose header declares more pixels
// than allowed.
var ErrTooManyPixels = errors.New("image has too many pixels")

// CheckPixels reads only the image header and rejects images larger than
// maxPixels. A non-positive maxPixels disables the check.
func CheckPixels(data []byte, maxPixels int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image config: %w", err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

// DownscaleStill re-encodes a jpeg or png so that neither side exceeds
// maxDim. Images that already fit, and gifs, are returned unchanged.
// data must have passed CheckPixels; decoding allocates the full bitmap.
func DownscaleStill(data []byte, contentType string, maxDim int) ([]byte, image.Image, error) {
	if contentType == "image/gif" {
		return data, nil, nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	dst := resizeToFit(src, maxDim, maxDim)
	if dst == src {
		return data, src, nil
	}

	buf := bytes.NewBuffer(nil)
	switch contentType {
	case "image/png":
		err = png.Encode(buf, dst)
	default:
		err = jpeg.Encode(buf, dst, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), dst, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if maxWidth <= 0 || maxHeight <= 0 || w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	newW, newH := maxWidth, h*maxWidth/w
	if w*maxHeight < h*maxWidth {
		newW, newH = w*maxHeight/h, maxHeight
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

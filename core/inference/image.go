// ABOUTME: Upload normalization for leaf photos before they are sent for inference
// ABOUTME: Decodes common formats including WebP, bounds the longest edge and re-encodes JPEG

package inference

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"cropguard-api/core/errors"
)

const jpegQuality = 90

// MaxPixels bounds the decoded size of uploads. 40 megapixels decode to
// about 160 MB of RGBA.
const MaxPixels = 40_000_000

// CheckPixels reads only the image header and rejects images whose decoded
// size would exceed MaxPixels
func CheckPixels(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return &errors.ValidationError{Field: "file", Message: "file is not a supported image"}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return &errors.ValidationError{Field: "file", Message: "image has empty bounds"}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return &errors.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("image is %dx%d, at most %d pixels are accepted", cfg.Width, cfg.Height, MaxPixels),
		}
	}
	return nil
}

// Normalize decodes an uploaded image, applies EXIF orientation, shrinks it
// so the longest edge is at most maxEdge and re-encodes it as JPEG.
func Normalize(data []byte, maxEdge int) ([]byte, error) {
	if len(data) == 0 {
		return nil, &errors.ValidationError{Field: "file", Message: "image is empty"}
	}
	if err := CheckPixels(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &errors.ValidationError{Field: "file", Message: "file is not a supported image"}
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, &errors.ValidationError{Field: "file", Message: "image has empty bounds"}
	}

	img = fitEdge(img, maxEdge)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func fitEdge(img image.Image, maxEdge int) image.Image {
	if maxEdge <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

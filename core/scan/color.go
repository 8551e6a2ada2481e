// ABOUTME: Dominant leaf color extraction using K-means clustering
// ABOUTME: Masks near-white and near-black backgrounds before clustering

package scan

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"cropguard-api/core/domain"
	"cropguard-api/core/inference"
	"cropguard-api/core/interfaces"
)

// clustering on a thumbnail is plenty for a single dominant color
const colorSampleEdge = 160

// ColorExtractor implements interfaces.ColorExtractor
type ColorExtractor struct {
	deps interfaces.Dependencies
}

// NewColorExtractor creates a color extractor
func NewColorExtractor(deps interfaces.Dependencies) *ColorExtractor {
	return &ColorExtractor{deps: deps}
}

// ExtractColor returns the most prominent color of an encoded image
func (e *ColorExtractor) ExtractColor(ctx context.Context, data []byte) (color *domain.RGBColor, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.deps.Logger.Debug("Recovered from panic in color extraction", map[string]interface{}{
				"panic": fmt.Sprintf("%v", rec),
			})
			color = nil
			err = fmt.Errorf("panic recovered: %v", rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := inference.CheckPixels(data); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("image has empty bounds")
	}

	img = imaging.Fit(img, colorSampleEdge, colorSampleEdge, imaging.Box)
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(bounds)
	draw.Draw(nrgba, bounds, img, bounds.Min, draw.Src)

	colors, err := prominentcolor.KmeansWithAll(
		prominentcolor.ArgumentDefault,
		nrgba,
		prominentcolor.DefaultK,
		1,
		prominentcolor.GetDefaultMasks(),
	)
	if err != nil || len(colors) == 0 {
		// whole frame was masked, e.g. a leaf shot on white paper
		colors, err = prominentcolor.KmeansWithAll(
			prominentcolor.ArgumentDefault,
			nrgba,
			prominentcolor.DefaultK,
			1,
			nil,
		)
		if err != nil || len(colors) == 0 {
			return nil, fmt.Errorf("no colors extracted from image")
		}
	}

	return &domain.RGBColor{
		R: uint8(colors[0].Color.R),
		G: uint8(colors[0].Color.G),
		B: uint8(colors[0].Color.B),
	}, nil
}

package tesseract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/fomo-labs/docproof/internal/template"
)

// cropField cuts the region of img covered by the field's bounding box.
// Box coordinates live in template space; they are rescaled to the actual
// image dimensions so that photographed or resampled pages still line up.
// The crop is re-encoded as PNG, which Tesseract consumes losslessly.
func cropField(img []byte, box template.BBox, tplSize template.Size) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := decoded.Bounds()
	rect, err := scaleBox(box, tplSize, bounds)
	if err != nil {
		return nil, err
	}

	sub, ok := decoded.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", decoded)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleBox maps a template-space box onto image pixel coordinates. When the
// template declares no canvas size the box is taken as already being in
// pixels. The result is clamped to the image bounds.
func scaleBox(box template.BBox, tplSize template.Size, bounds image.Rectangle) (image.Rectangle, error) {
	x, y, w, h := float64(box.PX[0]), float64(box.PX[1]), float64(box.PX[2]), float64(box.PX[3])

	if tplSize.W > 0 && tplSize.H > 0 {
		sx := float64(bounds.Dx()) / float64(tplSize.W)
		sy := float64(bounds.Dy()) / float64(tplSize.H)
		x, y, w, h = x*sx, y*sy, w*sx, h*sy
	}

	rect := image.Rect(
		bounds.Min.X+int(x),
		bounds.Min.Y+int(y),
		bounds.Min.X+int(x+w),
		bounds.Min.Y+int(y+h),
	).Intersect(bounds)

	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("box %v outside image bounds %v", box.PX, bounds)
	}
	return rect, nil
}

package tesseract

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/template"
)

// testPage renders a w x h page with a single red marker pixel so tests can
// confirm which region a crop came from.
func testPage(t *testing.T, w, h, markX, markY int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(markX, markY, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeCrop(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, bl, _ := c.RGBA()
	return r > 0x8000 && g < 0x100 && bl < 0x100
}

func TestCropFieldNoScaling(t *testing.T) {
	page := testPage(t, 100, 100, 25, 25)
	box := template.BBox{PX: []int{20, 20, 10, 10}}

	crop, err := cropField(page, box, template.Size{})
	if err != nil {
		t.Fatal(err)
	}
	img := decodeCrop(t, crop)
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Fatalf("crop bounds = %v, want 10x10", img.Bounds())
	}
	if !isRed(img.At(5, 5)) {
		t.Error("marker pixel not inside crop")
	}
}

func TestCropFieldScalesTemplateSpace(t *testing.T) {
	// template declares a 200x200 canvas, page is 100x100: half scale
	page := testPage(t, 100, 100, 25, 25)
	box := template.BBox{PX: []int{40, 40, 20, 20}}

	crop, err := cropField(page, box, template.Size{W: 200, H: 200})
	if err != nil {
		t.Fatal(err)
	}
	img := decodeCrop(t, crop)
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Fatalf("crop bounds = %v, want 10x10 after scaling", img.Bounds())
	}
	if !isRed(img.At(5, 5)) {
		t.Error("marker pixel not inside scaled crop")
	}
}

func TestCropFieldClampsToBounds(t *testing.T) {
	page := testPage(t, 50, 50, 48, 48)
	box := template.BBox{PX: []int{40, 40, 100, 100}}

	crop, err := cropField(page, box, template.Size{})
	if err != nil {
		t.Fatal(err)
	}
	img := decodeCrop(t, crop)
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Fatalf("crop not clamped: %v", img.Bounds())
	}
	if !isRed(img.At(8, 8)) {
		t.Error("marker pixel not inside clamped crop")
	}
}

func TestCropFieldOutsideBounds(t *testing.T) {
	page := testPage(t, 50, 50, 10, 10)
	box := template.BBox{PX: []int{200, 200, 10, 10}}

	if _, err := cropField(page, box, template.Size{}); err == nil {
		t.Fatal("expected error for box outside image")
	}
}

func TestCropFieldBadImage(t *testing.T) {
	box := template.BBox{PX: []int{0, 0, 10, 10}}
	if _, err := cropField([]byte("not an image"), box, template.Size{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLanguagesFor(t *testing.T) {
	e := NewEngine(common.OCRConfig{Languages: []string{"eng"}}, nil)

	got := e.languagesFor(template.Field{OCR: template.Hints{Lang: "nep+eng"}})
	if len(got) != 2 || got[0] != "nep" || got[1] != "eng" {
		t.Errorf("languagesFor hint = %v", got)
	}
	got = e.languagesFor(template.Field{})
	if len(got) != 1 || got[0] != "eng" {
		t.Errorf("languagesFor default = %v", got)
	}
}

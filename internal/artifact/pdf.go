package artifact

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/template"
)

// creationDate is pinned so that identical inputs always yield identical
// artifact bytes. Exact-match verification depends on this: a wall-clock
// timestamp inside the PDF would change the content hash on every run.
var creationDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	minFontSize = 14.0
	maxFontSize = 48.0
)

// Generator renders filled form templates to PDF. One page per artifact,
// sized to the template's pixel canvas at one point per pixel, with the
// proof id embedded in the document keywords.
type Generator struct {
	fontPath string
	log      *slog.Logger
}

func NewGenerator(fontPath string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{fontPath: fontPath, log: logger}
}

// Build renders the template with the given field values and embeds proofID
// into the document metadata. The returned bytes are final: hashing and
// ledger insertion happen downstream.
func (g *Generator) Build(tpl *template.Template, values map[string]string, proofID string) ([]byte, error) {
	w, h := float64(tpl.Size.W), float64(tpl.Size.H)
	if w <= 0 || h <= 0 {
		w, h = 595, 842 // A4 in points
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetCreationDate(creationDate)
	pdf.SetModificationDate(creationDate)
	pdf.SetTitle(tpl.Name, true)
	pdf.SetSubject("Filled form artifact", false)
	pdf.SetKeywords(EmbedKeyword(proofID), false)

	fontFamily := "Helvetica"
	if g.fontPath != "" {
		if _, err := os.Stat(g.fontPath); err == nil {
			pdf.AddUTF8Font("custom", "", g.fontPath)
			fontFamily = "custom"
		} else {
			g.log.Warn("artifact.font_missing", "path", g.fontPath)
		}
	}

	pdf.AddPage()

	if tpl.BackgroundImage != "" {
		if _, err := os.Stat(tpl.BackgroundImage); err == nil {
			imageType := "JPG"
			if constants.MIMEForExt(filepath.Ext(tpl.BackgroundImage)) == "image/png" {
				imageType = "PNG"
			}
			pdf.ImageOptions(tpl.BackgroundImage, 0, 0, w, h, false,
				gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}, 0, "")
		} else {
			g.log.Warn("artifact.background_missing", "template", tpl.ID, "path", tpl.BackgroundImage)
		}
	}

	pdf.SetTextColor(16, 16, 16)
	for _, f := range tpl.Fields {
		value := values[f.ID]
		if value == "" || !f.BBox.Valid() {
			continue
		}
		if f.Style == "uppercase" {
			value = strings.ToUpper(value)
		}
		g.drawField(pdf, fontFamily, f, value)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.log.Error("artifact.render_failed", "template", tpl.ID, "error", err)
		return nil, common.WrapError(err, "render pdf")
	}

	g.log.Info("artifact.render_ok",
		"template", tpl.ID,
		"proof_id", proofID,
		"fields", len(values),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

func (g *Generator) drawField(pdf *gofpdf.Fpdf, fontFamily string, f template.Field, value string) {
	x := float64(f.BBox.PX[0])
	y := float64(f.BBox.PX[1])
	bw := float64(f.BBox.PX[2])
	bh := float64(f.BBox.PX[3])

	size := bh * 0.70
	if size < minFontSize {
		size = minFontSize
	}
	if size > maxFontSize {
		size = maxFontSize
	}
	pdf.SetFont(fontFamily, "", size)

	baseline := y + bh*0.5 + size*0.35

	if f.Type == "box_grid" && f.Grid != nil && f.Grid.Boxes > 0 {
		// one character per printed box, centered in its cell
		cellW := bw / float64(f.Grid.Boxes)
		runes := []rune(value)
		for i := 0; i < f.Grid.Boxes && i < len(runes); i++ {
			ch := string(runes[i])
			cx := x + float64(i)*cellW + (cellW-pdf.GetStringWidth(ch))/2
			pdf.Text(cx, baseline, ch)
		}
		return
	}

	// shrink until the line fits the box width
	for size > minFontSize && pdf.GetStringWidth(value) > bw {
		size -= 1
		pdf.SetFont(fontFamily, "", size)
	}
	pdf.Text(x+2, baseline, value)
}

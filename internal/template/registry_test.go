package template

import (
	"os"
	"path/filepath"
	"testing"
)

const kycTemplate = `{
  "name": "Land Tax Form",
  "image": "land_tax.png",
  "size": {"w": 847, "h": 1197},
  "fields": [
    {"id": "f002", "name": "owner_name", "label": "Owner Name", "type": "text_line",
     "bbox": {"px": [120, 200, 300, 28]}, "ocr": {"lang": "nep+eng", "psm": 7}},
    {"id": "f003", "name": "father_name", "label": "Father Name", "type": "text_line",
     "bbox": {"px": [120, 240, 300, 28]}, "ocr": {"lang": "nep+eng", "psm": 7}},
    {"id": "f005", "name": "pan_number", "label": "PAN", "type": "box_grid",
     "bbox": {"px": [420, 300, 180, 30]}, "grid": {"boxes": 9}, "style": "uppercase"}
  ]
}`

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "kyc_v1.json", kycTemplate)
	writeTemplate(t, dir, "notes.txt", "not a template")

	r, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	tpl, err := r.Get("kyc_v1")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.ID != "kyc_v1" {
		t.Errorf("id = %q, want kyc_v1", tpl.ID)
	}
	if tpl.Size.W != 847 || tpl.Size.H != 1197 {
		t.Errorf("size = %dx%d, want 847x1197", tpl.Size.W, tpl.Size.H)
	}

	ids := tpl.FieldIDs()
	want := []string{"f002", "f003", "f005"}
	if len(ids) != len(want) {
		t.Fatalf("field ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("field id[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	f := tpl.FieldByID("f005")
	if f == nil || f.Grid == nil || f.Grid.Boxes != 9 {
		t.Errorf("f005 grid not parsed: %+v", f)
	}
	if !f.BBox.Valid() {
		t.Error("f005 bbox should be valid")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestLoadDirSkipsBrokenTemplates(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "kyc_v1.json", kycTemplate)
	writeTemplate(t, dir, "broken.json", `{"fields": }`)

	r, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.IDs(); len(got) != 1 || got[0] != "kyc_v1" {
		t.Errorf("ids = %v, want [kyc_v1]", got)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	if _, err := LoadDir(t.TempDir(), nil); err == nil {
		t.Error("expected error for empty dir")
	}
}

package values

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFacetKeywords_Default(t *testing.T) {
	fk, err := LoadFacetKeywords("")
	if err != nil {
		t.Fatal(err)
	}
	if len(fk.Keywords) != 16 {
		t.Fatalf("expected 16 default keywords, got %d: %v", len(fk.Keywords), fk.Keywords)
	}
	if fk.Keywords[0] != "POOL" || fk.Keywords[15] != "PET" {
		t.Fatalf("unexpected default keywords %v", fk.Keywords)
	}
}

func TestLoadFacetKeywords_FileNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facets.yaml")
	if err := os.WriteFile(path, []byte("keywords:\n  - ' sauna '\n  - ''\n  - Beach\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fk, err := LoadFacetKeywords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(fk.Keywords) != 2 || fk.Keywords[0] != "SAUNA" || fk.Keywords[1] != "BEACH" {
		t.Fatalf("unexpected keywords %v", fk.Keywords)
	}
}

func TestLoadFacetKeywords_Errors(t *testing.T) {
	if _, err := LoadFacetKeywords(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ParseFacetKeywords([]byte("keywords: [unclosed")); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

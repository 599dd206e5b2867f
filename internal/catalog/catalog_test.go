package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/rollcall/internal/models"
)

func seedCatalog(t *testing.T, c Catalog) {
	t.Helper()
	ctx := context.Background()
	recs := []*models.VectorRecord{
		{SourceID: "S1", SourceType: "student-face", Label: "Amelia Watson", Metadata: map[string]interface{}{"class": "7B"}},
		{SourceID: "S2", SourceType: "student-face", Label: "Gawr Gura", Metadata: map[string]interface{}{"class": "7C"}},
		{SourceID: "T1", SourceType: "teacher-face", Label: "Amelia Earhart"},
	}
	for _, r := range recs {
		if err := c.Index(ctx, r); err != nil {
			t.Fatalf("Index(%s): %v", r.SourceID, err)
		}
	}
}

func TestLookup(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	seedCatalog(t, c)
	ctx := context.Background()

	keys, err := c.Lookup(ctx, "amelia", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %v, want 2 hits", keys)
	}

	keys, err = c.Lookup(ctx, "amelia", "student-face", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != (models.RecordKey{SourceType: "student-face", SourceID: "S1"}) {
		t.Errorf("filtered lookup = %v", keys)
	}

	keys, err = c.Lookup(ctx, "7c", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].SourceID != "S2" {
		t.Errorf("metadata lookup = %v", keys)
	}

	keys, err = c.Lookup(ctx, "watsen", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].SourceID != "S1" {
		t.Errorf("fuzzy lookup = %v", keys)
	}

	if _, err := c.Lookup(ctx, "  ", "", 10); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestReindexAndDelete(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	seedCatalog(t, c)
	ctx := context.Background()

	if err := c.Index(ctx, &models.VectorRecord{SourceID: "S2", SourceType: "student-face", Label: "Ina Ninomae"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Count(); n != 3 {
		t.Errorf("Count() = %d after re-index, want 3", n)
	}
	if keys, _ := c.Lookup(ctx, "gura", "", 10); len(keys) != 0 {
		t.Errorf("stale label still indexed: %v", keys)
	}

	if err := c.Delete(ctx, "student-face", "S1"); err != nil {
		t.Fatal(err)
	}
	if keys, _ := c.Lookup(ctx, "watson", "", 10); len(keys) != 0 {
		t.Errorf("deleted record still found: %v", keys)
	}
}

func TestOpen_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.bleve")
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	seedCatalog(t, c)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	if n, _ := c.Count(); n != 3 {
		t.Errorf("Count() = %d after reopen, want 3", n)
	}
}

func TestMetadataText(t *testing.T) {
	got := metadataText(map[string]interface{}{
		"b":    "second",
		"a":    "first",
		"tags": []interface{}{"x", 3, "y"},
		"n":    42,
	})
	if got != "first second x y" {
		t.Errorf("metadataText = %q", got)
	}
}

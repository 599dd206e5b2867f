// Package catalog indexes enrolled records by label and metadata so operators
// can find an identity by name.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/rollcall/internal/models"
)

// Catalog is a label index over enrolled records.
type Catalog interface {
	Index(ctx context.Context, rec *models.VectorRecord) error
	Delete(ctx context.Context, sourceType, sourceID string) error
	Lookup(ctx context.Context, text, sourceType string, limit int) ([]models.RecordKey, error)
	Count() (uint64, error)
	Close() error
}

type entry struct {
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type"`
	Label      string `json:"label"`
	Meta       string `json:"meta"`
}

// BleveCatalog implements Catalog with Bleve.
type BleveCatalog struct {
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("label", text)
	doc.AddFieldMappingsAt("meta", text)

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("source_id", exact)
	doc.AddFieldMappingsAt("source_type", exact)

	im.AddDocumentMapping("record", doc)
	im.DefaultType = "record"
	im.DefaultMapping = doc
	return im
}

// Open opens the catalog at path, creating it if missing. An empty path
// keeps the index in memory.
func Open(path string) (*BleveCatalog, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory catalog: %w", err)
		}
		return &BleveCatalog{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		return &BleveCatalog{index: index}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}
	return &BleveCatalog{index: index}, nil
}

func docID(sourceType, sourceID string) string {
	return sourceType + "\x00" + sourceID
}

// Index adds or replaces the catalog entry for rec.
func (c *BleveCatalog) Index(_ context.Context, rec *models.VectorRecord) error {
	e := entry{
		SourceID:   rec.SourceID,
		SourceType: rec.SourceType,
		Label:      rec.Label,
		Meta:       metadataText(rec.Metadata),
	}
	if err := c.index.Index(docID(rec.SourceType, rec.SourceID), e); err != nil {
		return fmt.Errorf("failed to index %s/%s: %w", rec.SourceType, rec.SourceID, err)
	}
	return nil
}

// Delete removes the entry for the key. Missing entries are not an error.
func (c *BleveCatalog) Delete(_ context.Context, sourceType, sourceID string) error {
	return c.index.Delete(docID(sourceType, sourceID))
}

// Lookup returns keys whose label or metadata match text, best first.
// Label terms within edit distance 1 also match, so small misspellings of names work.
func (c *BleveCatalog) Lookup(ctx context.Context, text, sourceType string, limit int) ([]models.RecordKey, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.InvalidInputf("lookup text must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	label := bleve.NewMatchQuery(text)
	label.SetField("label")
	label.SetFuzziness(1)
	label.SetBoost(2)
	meta := bleve.NewMatchQuery(text)
	meta.SetField("meta")
	var q blevequery.Query = bleve.NewDisjunctionQuery(label, meta)
	if sourceType != "" {
		st := bleve.NewTermQuery(sourceType)
		st.SetField("source_type")
		q = bleve.NewConjunctionQuery(q, st)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"source_id", "source_type"}
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	out := make([]models.RecordKey, 0, len(res.Hits))
	for _, hit := range res.Hits {
		st, _ := hit.Fields["source_type"].(string)
		id, _ := hit.Fields["source_id"].(string)
		out = append(out, models.RecordKey{SourceType: st, SourceID: id})
	}
	return out, nil
}

// Count returns the number of indexed records.
func (c *BleveCatalog) Count() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the index.
func (c *BleveCatalog) Close() error {
	return c.index.Close()
}

// metadataText flattens string-like metadata values into one searchable field.
// Keys are sorted so the indexed text is stable.
func metadataText(md map[string]interface{}) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		switch v := md[k].(type) {
		case string:
			parts = append(parts, v)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
		case fmt.Stringer:
			parts = append(parts, v.String())
		}
	}
	return strings.Join(parts, " ")
}

package enroll

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/models"
)

// DefaultPattern matches enrollment files anywhere below a directory.
const DefaultPattern = "**/*.json"

// fileInput is the on-disk enrollment format. MediaFile is resolved relative
// to the JSON file and read in place of inline media.
type fileInput struct {
	models.EnrollInput
	MediaFile string `json:"media_file,omitempty"`
}

// EnrollFile enrolls the identity described by the JSON file at path and
// returns the key it was enrolled under.
func (p *Pipeline) EnrollFile(ctx context.Context, path string) (models.RecordKey, *models.EnrollResult, error) {
	p.logger.Debug("enrolling file", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RecordKey{}, nil, fmt.Errorf("read enrollment file: %w", err)
	}
	var in fileInput
	if err := json.Unmarshal(data, &in); err != nil {
		return models.RecordKey{}, nil, models.InvalidInputf("parse %s: %v", filepath.Base(path), err)
	}
	if in.MediaFile != "" {
		if len(in.Media) > 0 {
			return models.RecordKey{}, nil, models.InvalidInputf("%s: media and media_file are mutually exclusive", filepath.Base(path))
		}
		mediaPath := in.MediaFile
		if !filepath.IsAbs(mediaPath) {
			mediaPath = filepath.Join(filepath.Dir(path), mediaPath)
		}
		if in.Media, err = os.ReadFile(mediaPath); err != nil {
			return models.RecordKey{}, nil, fmt.Errorf("read media file: %w", err)
		}
	}
	res, err := p.Enroll(ctx, &in.EnrollInput)
	if err != nil {
		return models.RecordKey{}, nil, err
	}
	return in.Key(), res, nil
}

// EnrollDirectory enrolls every file under dir matching pattern
// (doublestar syntax, DefaultPattern when empty). Files are processed in
// lexical order; the first failure stops the walk.
func (p *Pipeline) EnrollDirectory(ctx context.Context, dir, pattern string) (int, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return 0, models.InvalidInputf("invalid pattern %q", pattern)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	matches, err := doublestar.Glob(os.DirFS(absDir), pattern)
	if err != nil {
		return 0, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	n := 0
	for _, rel := range matches {
		path := filepath.Join(absDir, filepath.FromSlash(rel))
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if _, _, err := p.EnrollFile(ctx, path); err != nil {
			return n, fmt.Errorf("%s: %w", strings.TrimPrefix(rel, "./"), err)
		}
		n++
	}
	return n, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/cli"
	"github.com/hyperjump/rollcall/internal/enroll"
	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/report"
)

const defaultSourceType = "student-face"

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runEnroll(args []string, stdout io.Writer) error {
	fs := newFlagSet("enroll")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	sourceID := fs.String("source-id", "", "identity to enroll")
	sourceType := fs.String("source-type", defaultSourceType, "namespace of the identity")
	label := fs.String("label", "", "display name")
	vec := fs.String("vector", "", "vector as \"0.1,0.2,...\" or a JSON array")
	media := fs.String("media", "", "image to extract the vector from")
	var meta stringList
	fs.Var(&meta, "meta", "metadata key=value (repeatable)")
	dir := fs.String("dir", "", "enroll every JSON file under this directory")
	pattern := fs.String("pattern", enroll.DefaultPattern, "file pattern for --dir (doublestar syntax)")
	roster := fs.String("roster", "", "enroll from an xlsx roster (source_id, label, media_file columns)")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	modes := 0
	for _, set := range []bool{fs.NArg() > 0, *dir != "", *roster != "", *sourceID != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return fmt.Errorf("give exactly one of: a JSON file, --dir, --roster, or --source-id")
	}

	c, _, logger, err := openDirect(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer c.Close()
	ctx := context.Background()

	switch {
	case fs.NArg() > 0:
		key, res, err := c.Pipeline.EnrollFile(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return cli.WriteEnrollResult(stdout, key, res, format)
	case *dir != "":
		n, err := c.Pipeline.EnrollDirectory(ctx, *dir, *pattern)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Enrolled %d file(s) from %s\n", n, *dir)
		return nil
	case *roster != "":
		n, failed, err := enrollRoster(ctx, c.Pipeline, *roster, *sourceType, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Enrolled %d of %d roster row(s) from %s\n", n, n+failed, *roster)
		if failed > 0 {
			return fmt.Errorf("%d roster row(s) failed", failed)
		}
		return nil
	}

	in := &models.EnrollInput{SourceID: *sourceID, SourceType: *sourceType, Label: *label}
	if in.Metadata, err = parseMetadata(meta); err != nil {
		return err
	}
	if *vec != "" {
		if in.Vector, err = parseVector(*vec); err != nil {
			return err
		}
	}
	if *media != "" {
		if in.Media, err = os.ReadFile(*media); err != nil {
			return fmt.Errorf("read media: %w", err)
		}
	}
	res, err := c.Pipeline.Enroll(ctx, in)
	if err != nil {
		return err
	}
	return cli.WriteEnrollResult(stdout, in.Key(), res, format)
}

// parseMetadata turns key=value pairs into a metadata map. Nil when empty.
func parseMetadata(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("metadata %q: want key=value", p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

// enrollRoster enrolls every row of the roster workbook at path. Media files
// are resolved relative to the roster. A failing row is logged and counted.
func enrollRoster(ctx context.Context, p *enroll.Pipeline, path, sourceType string, logger *zap.Logger) (enrolled, failed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	entries, err := report.ReadRoster(f, sourceType)
	if err != nil {
		return 0, 0, err
	}
	base := filepath.Dir(path)
	for _, e := range entries {
		mediaPath := e.MediaFile
		if !filepath.IsAbs(mediaPath) {
			mediaPath = filepath.Join(base, mediaPath)
		}
		data, err := os.ReadFile(mediaPath)
		if err == nil {
			_, err = p.EnrollMedia(ctx, &models.EnrollInput{
				SourceID:   e.SourceID,
				SourceType: e.SourceType,
				Label:      e.Label,
				Media:      data,
				Metadata:   map[string]interface{}{"roster": filepath.Base(path)},
			})
		}
		if err != nil {
			failed++
			logger.Warn("roster row failed",
				zap.Int("row", e.Row),
				zap.String("source_id", e.SourceID),
				zap.Error(err))
			continue
		}
		enrolled++
	}
	return enrolled, failed, nil
}

func runDelete(args []string, stdout io.Writer) error {
	fs := newFlagSet("delete")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: rollcall delete [flags] <source-type> <source-id>")
	}
	c, _, logger, err := openDirect(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer c.Close()
	if err := c.Pipeline.Delete(context.Background(), fs.Arg(0), fs.Arg(1)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted: %s/%s\n", fs.Arg(0), fs.Arg(1))
	return nil
}

func runReindex(args []string, stdout io.Writer) error {
	fs := newFlagSet("reindex")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, _, logger, err := openDirect(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer c.Close()
	if c.Catalog == nil {
		return fmt.Errorf("catalog not enabled (set storage.catalog_path)")
	}
	n, err := c.Pipeline.Reindex(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Reindexed %d record(s)\n", n)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/hyperjump/rollcall/internal/cli"
	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/report"
	"github.com/hyperjump/rollcall/internal/storage"
)

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	StorageBackend          string         `json:"storage_backend"`
	ExtractorType           string         `json:"extractor_type"`
	ExtractorDimensions     int            `json:"extractor_dimensions"`
	MatchDefaultThreshold   float64        `json:"match_default_threshold"`
	ResolveDefaultThreshold float64        `json:"resolve_default_threshold"`
	TruncateMismatched      bool           `json:"truncate_mismatched"`
	EnrollDimensions        map[string]int `json:"enroll_dimensions,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Records             int64                 `json:"records"`
	RecordsBySourceType map[string]int64      `json:"records_by_source_type"`
	CatalogEntries      *uint64               `json:"catalog_entries,omitempty"`
	DiskUsageBytes      *int64                `json:"disk_usage_bytes,omitempty"`
	Config              *statusConfigResponse `json:"config,omitempty"`
}

func runStatus(args []string, stdout io.Writer) error {
	fs := newFlagSet("status")
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	var status *statusResponse
	if *serverURL != "" {
		status = &statusResponse{}
		err = callAPI(http.MethodGet, *serverURL+"/api/v1/status", nil, status)
	} else {
		c, cfg, logger, openErr := openDirect(*configPath, false)
		if openErr != nil {
			return openErr
		}
		defer logger.Sync()
		defer c.Close()
		status, err = directStatus(context.Background(), c, cfg)
	}
	if err != nil {
		return err
	}
	return writeStatus(stdout, status, format)
}

func directStatus(ctx context.Context, c *Components, cfg *config.Config) (*statusResponse, error) {
	total, err := c.Storage.Count(ctx, storage.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	types, err := c.Storage.SourceTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source types: %w", err)
	}
	st := &statusResponse{Records: total, RecordsBySourceType: make(map[string]int64, len(types))}
	for _, t := range types {
		n, err := c.Storage.Count(ctx, storage.ListFilter{SourceType: t})
		if err != nil {
			return nil, fmt.Errorf("count records: %w", err)
		}
		st.RecordsBySourceType[t] = n
	}
	if c.Catalog != nil {
		if n, err := c.Catalog.Count(); err == nil {
			st.CatalogEntries = &n
		}
	}
	if disk, err := storage.DiskUsage(storage.Options{
		Backend:      cfg.Storage.Backend,
		DatabasePath: cfg.Storage.DatabasePath,
		BadgerPath:   cfg.Storage.BadgerPath,
	}); err == nil {
		if catalogBytes, err := storage.DiskUsageBytes(cfg.Storage.CatalogPath); err == nil {
			disk += catalogBytes
		}
		st.DiskUsageBytes = &disk
	}
	st.Config = &statusConfigResponse{
		StorageBackend:          cfg.Storage.Backend,
		ExtractorType:           cfg.Extractor.Type,
		ExtractorDimensions:     cfg.Extractor.Dimensions,
		MatchDefaultThreshold:   cfg.Match.ThresholdOrDefault(),
		ResolveDefaultThreshold: cfg.Resolve.ThresholdOrDefault(),
		TruncateMismatched:      cfg.Scoring.TruncateMismatched,
		EnrollDimensions:        cfg.Enroll.Dimensions,
	}
	return st, nil
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "records:            %d   # enrolled identities\n", status.Records)
	types := make([]string, 0, len(status.RecordsBySourceType))
	for t := range status.RecordsBySourceType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-18s%d\n", t+":", status.RecordsBySourceType[t])
	}
	if status.CatalogEntries != nil {
		fmt.Fprintf(w, "catalog_entries:    %d\n", *status.CatalogEntries)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # store + catalog on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "storage_backend:    %s\n", c.StorageBackend)
		fmt.Fprintf(w, "extractor:          %s (%d dims)\n", c.ExtractorType, c.ExtractorDimensions)
		fmt.Fprintf(w, "match_threshold:    %.4f\n", c.MatchDefaultThreshold)
		fmt.Fprintf(w, "resolve_threshold:  %.4f\n", c.ResolveDefaultThreshold)
		fmt.Fprintf(w, "truncate_mismatch:  %t\n", c.TruncateMismatched)
	}
	return nil
}

func runExport(args []string, stdout io.Writer) error {
	fs := newFlagSet("export")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sourceType := fs.String("source-type", "", "export one namespace (empty = all)")
	resolution := fs.String("resolution", "", "write this resolve --output json result instead of the roster")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rollcall export [flags] <out.xlsx>")
	}
	outPath := fs.Arg(0)

	if *resolution != "" {
		data, err := os.ReadFile(*resolution)
		if err != nil {
			return fmt.Errorf("read resolution: %w", err)
		}
		var res models.ResolveResult
		if err := json.Unmarshal(data, &res); err != nil {
			return fmt.Errorf("parse resolution: %w", err)
		}
		if err := writeFile(outPath, func(w io.Writer) error { return report.WriteResolution(w, &res) }); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported resolution of %d face(s) to %s\n", res.TotalFaces, outPath)
		return nil
	}

	var n int
	err := withDirect(*configPath, func(c *Components) error {
		records, err := c.Storage.List(context.Background(), storage.ListFilter{SourceType: *sourceType})
		if err != nil {
			return err
		}
		n = len(records)
		return writeFile(outPath, func(w io.Writer) error { return report.WriteRoster(w, records) })
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d record(s) to %s\n", n, outPath)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

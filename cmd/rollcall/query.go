package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/rollcall/internal/cli"
	"github.com/hyperjump/rollcall/internal/models"
)

func runSearch(args []string, stdout io.Writer) error {
	fs := newFlagSet("search")
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	vec := fs.String("vector", "", "query vector")
	media := fs.String("media", "", "image to extract the query from (direct mode)")
	topK := fs.Int("top-k", 10, "number of results")
	sourceType := fs.String("source-type", "", "restrict to one namespace (empty = all)")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if (*vec == "") == (*media == "") {
		return fmt.Errorf("give exactly one of --vector or --media")
	}

	q := &models.SearchQuery{TopK: *topK, SourceType: *sourceType}
	if *vec != "" {
		if q.Vector, err = parseVector(*vec); err != nil {
			return err
		}
	}

	var res models.SearchResponse
	if *serverURL != "" {
		if *media != "" {
			return fmt.Errorf("--media needs direct mode (--server \"\"); use compare --media against a server")
		}
		if err := callAPI(http.MethodPost, *serverURL+"/api/v1/search", q, &res); err != nil {
			return err
		}
		return cli.WriteSearchResults(stdout, &res, format)
	}

	c, _, logger, err := openDirect(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer c.Close()
	ctx := context.Background()
	if *media != "" {
		data, err := os.ReadFile(*media)
		if err != nil {
			return fmt.Errorf("read media: %w", err)
		}
		if q.Vector, err = c.Recognition.Extract(ctx, data); err != nil {
			return err
		}
	}
	out, err := c.Matcher.Search(ctx, q)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(stdout, out, format)
}

func runCompare(args []string, stdout io.Writer) error {
	fs := newFlagSet("compare")
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	a := fs.String("a", "", "first stored source id (pairwise mode)")
	b := fs.String("b", "", "second stored source id (pairwise mode)")
	vec := fs.String("vector", "", "query vector")
	media := fs.String("media", "", "image to extract the query from")
	sourceType := fs.String("source-type", defaultSourceType, "namespace to match within")
	var threshold optionalFloat
	fs.Var(&threshold, "threshold", "cosine threshold (default from config)")
	verbose := fs.Bool("verbose", false, "include candidates and the similarity trace")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	pairwise := *a != "" || *b != ""
	if pairwise {
		if *vec != "" || *media != "" {
			return fmt.Errorf("--a/--b cannot be combined with --vector or --media")
		}
		req := &models.CompareStoredRequest{
			SourceIDA: *a, SourceIDB: *b, SourceType: *sourceType,
			Threshold: threshold.value, Verbose: *verbose,
		}
		var res *models.StoredMatchResult
		if *serverURL != "" {
			res = &models.StoredMatchResult{}
			err = callAPI(http.MethodPost, *serverURL+"/api/v1/compare/stored", req, res)
		} else {
			err = withDirect(*configPath, func(c *Components) error {
				var err error
				res, err = c.Matcher.CompareStored(context.Background(), req)
				return err
			})
		}
		if err != nil {
			return err
		}
		return cli.WriteStoredMatch(stdout, res, format)
	}

	if (*vec == "") == (*media == "") {
		return fmt.Errorf("give --a and --b, or exactly one of --vector or --media")
	}
	req := &models.CompareQueryRequest{SourceType: *sourceType, Threshold: threshold.value, Verbose: *verbose}
	if *vec != "" {
		if req.Vector, err = parseVector(*vec); err != nil {
			return err
		}
	} else if req.Media, err = os.ReadFile(*media); err != nil {
		return fmt.Errorf("read media: %w", err)
	}

	var res *models.QueryMatchResult
	if *serverURL != "" {
		res = &models.QueryMatchResult{}
		err = callAPI(http.MethodPost, *serverURL+"/api/v1/compare", req, res)
	} else {
		err = withDirect(*configPath, func(c *Components) error {
			var err error
			res, err = c.Recognition.CompareQuery(context.Background(), req)
			return err
		})
	}
	if err != nil {
		return err
	}
	return cli.WriteQueryMatch(stdout, res, format)
}

func runResolve(args []string, stdout io.Writer) error {
	fs := newFlagSet("resolve")
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	vectorsFile := fs.String("vectors", "", "JSON file with one vector per face")
	var media stringList
	fs.Var(&media, "media", "face image (repeatable)")
	sourceType := fs.String("source-type", defaultSourceType, "namespace to match within")
	var threshold optionalFloat
	fs.Var(&threshold, "threshold", "cosine threshold (default from config)")
	notify := fs.Bool("notify", false, "mark matched students present")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if (*vectorsFile == "") == (len(media) == 0) {
		return fmt.Errorf("give exactly one of --vectors or --media")
	}

	req := &models.ResolveRequest{SourceType: *sourceType, Threshold: threshold.value, Notify: *notify}
	if *vectorsFile != "" {
		req.Vectors, err = readVectorsFile(*vectorsFile)
	} else {
		req.Media, err = readMediaFiles(media)
	}
	if err != nil {
		return err
	}

	var res *models.FrameResult
	if *serverURL != "" {
		res = &models.FrameResult{}
		err = callAPI(http.MethodPost, *serverURL+"/api/v1/resolve", req, res)
	} else {
		err = withDirect(*configPath, func(c *Components) error {
			var err error
			res, err = c.Recognition.ResolveFrame(context.Background(), req)
			return err
		})
	}
	if err != nil {
		return err
	}
	return cli.WriteResolveResult(stdout, res, format)
}

// withDirect opens the store for the duration of fn.
func withDirect(configPath string, fn func(*Components) error) error {
	c, _, logger, err := openDirect(configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer c.Close()
	return fn(c)
}

func runInbox(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rollcall inbox <add|remove|list> [path]")
	}
	sub := args[0]
	fs := newFlagSet("inbox")
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not enroll files already in the directory (add)")
	if err := fs.Parse(argsReorder(args[1:])); err != nil {
		return err
	}
	endpoint := *serverURL + "/api/v1/inbox/directories"
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: rollcall inbox %s <path>", sub)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			return err
		}
		if sub == "add" {
			err = callAPI(http.MethodPost, endpoint, map[string]interface{}{"path": path, "sync": !*noSync}, nil)
		} else {
			err = callAPI(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil, nil)
		}
		if err != nil {
			return err
		}
		verb := "Added"
		if sub == "remove" {
			verb = "Removed"
		}
		fmt.Fprintf(stdout, "%s: %s\n", verb, path)
		return nil
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := callAPI(http.MethodGet, endpoint, nil, &out); err != nil {
			return err
		}
		fmt.Fprintln(stdout, strings.Join(out.Directories, "\n"))
		return nil
	default:
		return fmt.Errorf("unknown inbox subcommand: %s", sub)
	}
}

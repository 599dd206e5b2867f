// Package main is the rollcall CLI entry point.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/rollcall/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, so running from a project checkout
// uses the project's config. Returns the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openDirect loads config and initializes components for commands that work
// on the store without a running server.
func openDirect(configPath string, debug bool) (*Components, *config.Config, *zap.Logger, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := utils.NewCLILogger(cfg.Debug || debug)
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return c, cfg, logger, nil
}

type command func(args []string, stdout io.Writer) error

var commands = map[string]command{
	"enroll":  runEnroll,
	"delete":  runDelete,
	"reindex": runReindex,
	"search":  runSearch,
	"compare": runCompare,
	"resolve": runResolve,
	"status":  runStatus,
	"export":  runExport,
	"inbox":   runInbox,
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	name := os.Args[1]
	switch name {
	case "server":
		if err := runServer(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
		return
	case "version", "--version", "-v":
		fmt.Printf("rollcall version %s\n", version)
		return
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := cmd(os.Args[2:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rollcall - face embedding store and attendance matcher

Usage:
  rollcall server [flags]                       Start the HTTP server and enrollment inbox
  rollcall enroll [flags] [file.json]           Enroll identities (vector, media, JSON file, directory, or roster)
  rollcall delete [flags] <source-type> <id>    Remove an enrollment
  rollcall reindex [flags]                      Rebuild the label catalog from the store
  rollcall search [flags]                       Rank enrolled records by similarity to a query
  rollcall compare [flags]                      Match a query against the store, or two stored records
  rollcall resolve [flags]                      Resolve the faces of one frame to distinct students
  rollcall status [flags]                       Show store and configuration status
  rollcall export [flags] <out.xlsx>            Export the roster or a resolution as a workbook
  rollcall inbox <add|remove|list> [path]       Manage enrollment inbox directories
  rollcall version                              Show version
  rollcall help                                 Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/rollcall/config.yaml)
  --server string    Server URL for search/compare/resolve/status/inbox (default: http://localhost:8080).
                     Use --server "" to open the store directly when no server is running.
  --output string    Output format: text or json (default: text)

Query Flags (search, compare, resolve):
  --vector string       Query vector as "0.1,0.2,..." or a JSON array
  --media path          Image to extract the query from (repeatable for resolve)
  --vectors path        JSON file with one vector per face (resolve)
  --source-type string  Namespace to match within (default: student-face)
  --threshold float     Cosine threshold (default from config, 0.9)
  --verbose             Include candidates and the similarity trace (compare)
  --notify              Mark matched students present (resolve)

Examples:
  rollcall server
  rollcall enroll --source-id S1 --label "Ada Lovelace" --media ada.jpg
  rollcall enroll --dir ./inbox
  rollcall enroll --roster class-7b.xlsx
  rollcall compare --media door-cam.jpg --verbose
  rollcall compare --a S1 --b S2
  rollcall resolve --media face1.jpg --media face2.jpg --notify
  rollcall export --source-type student-face roster.xlsx
  rollcall status --output json`)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/registry"
)

// errUnclaimed is returned when no loaded extension can parse a path.
var errUnclaimed = errors.New("no extension claimed path")

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Log      *slog.Logger
	Registry *registry.Registry
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Ext        []string `name:"ext" type:"path" help:"Load an extension module (repeatable)"`
	NoBuiltins bool     `help:"Do not register the bundled extensions"`

	Tree       TreeCmd       `cmd:"" help:"Print the tree parsed from a file or directory"`
	Search     SearchCmd     `cmd:"" help:"Find nodes whose title or synonym starts with a query"`
	Show       ShowCmd       `cmd:"" help:"Print the content of a node"`
	Extensions ExtensionsCmd `cmd:"" help:"List loaded extensions"`
	Watch      WatchCmd      `cmd:"" help:"Search a source again whenever it changes"`
}

// TreeCmd is the "tree" subcommand.
type TreeCmd struct {
	Path string `arg:"" type:"path" help:"Documentation file or directory"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Paths []string `arg:"" type:"path" help:"Documentation files or directories"`
	Query string   `short:"q" required:"" help:"Title or synonym prefix"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Path    string `arg:"" type:"path" help:"Documentation file or directory"`
	Title   string `arg:"" help:"Title of the node to show"`
	Brief   bool   `xor:"part" help:"Show the brief instead of the content"`
	Details bool   `xor:"part" help:"Show the details instead of the content"`
	Section string `xor:"part" help:"Show the named section instead of the content"`
}

// ExtensionsCmd is the "extensions" subcommand.
type ExtensionsCmd struct{}

// WatchCmd is the "watch" subcommand.
type WatchCmd struct {
	Path     string        `arg:"" type:"path" help:"Documentation file or directory"`
	Query    string        `short:"q" required:"" help:"Title or synonym prefix"`
	Debounce time.Duration `default:"200ms" help:"Quiet period before re-parsing"`
}

// parse asks the registry for the tree of path, reporting failures on
// stderr the way every command does.
func parse(deps *Dependencies, path string) (*doctree.Node, error) {
	root, err := deps.Registry.ParseTree(path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return nil, err
	}
	if root == nil {
		fmt.Fprintf(deps.Stderr, "error: no extension can read %s. Use 'docview extensions' to see what is loaded.\n", path)
		return nil, fmt.Errorf("%s: %w", path, errUnclaimed)
	}
	return root, nil
}

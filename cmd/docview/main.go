package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/docview/internal/builtin"
	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/extension"
	"github.com/dgallion1/docview/internal/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Configuration. Set before calling Run().
	Config config.Config

	// Opener for extension modules. Nil uses registry.DefaultOpener.
	Opener extension.Opener

	// Registry built by Run.
	Registry *registry.Registry
}

// NewMain returns a new instance of Main configured from the environment.
func NewMain() *Main {
	return &Main{
		Config: config.Load(),
	}
}

// Close unloads every extension.
func (m *Main) Close() error {
	if m.Registry != nil {
		m.Registry.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docview"),
		kong.Description("Browse and search documentation through loadable extensions."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docview --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if err := m.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := m.Config.Logger(stderr)

	opts := []registry.Option{registry.WithLogger(log)}
	if m.Opener != nil {
		opts = append(opts, registry.WithOpener(m.Opener))
	}
	m.Registry = registry.New(opts...)
	defer m.Close()

	if m.Config.Builtins && !cli.NoBuiltins {
		err := builtin.Register(m.Registry, builtin.Options{
			CacheSize:            m.Config.ContentCacheSize,
			PDFFallbackPdftotext: m.Config.PDFFallbackPdftotext,
			MaxDepth:             m.Config.DirMaxDepth,
			Logger:               log,
		})
		if err != nil {
			return fmt.Errorf("failed to register bundled extensions: %w", err)
		}
	}

	modules, err := m.Config.ModulePaths()
	if err != nil {
		return err
	}
	for _, path := range append(modules, cli.Ext...) {
		if err := m.Registry.Load(path); err != nil {
			fmt.Fprintln(stderr, "Hint: extensions export either Extension (Go plugin) or extension_functions (C library)")
			return err
		}
	}

	deps.Registry = m.Registry
	deps.Log = log

	return kongCtx.Run(deps)
}

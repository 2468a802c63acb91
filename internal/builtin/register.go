package builtin

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docview/internal/extension"
)

// Defaults applied to zero Options fields.
const (
	DefaultCacheSize = 256
	DefaultMaxDepth  = 8
)

// Options configures the bundled extensions.
type Options struct {
	CacheSize            int // rendered fragments kept per format
	PDFFallbackPdftotext bool
	MaxDepth             int // directory levels below the root
	Logger               *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Formats returns one instance of every file format, narrowest level first.
func Formats(opts Options) []*Format {
	return []*Format{
		Markdown(opts),
		HTML(opts),
		DOCX(opts),
		PDF(opts),
		CSV(opts),
		Text(opts),
	}
}

// Loader is the part of the registry Register needs.
type Loader interface {
	LoadBuiltin(name string, ext extension.Extension) error
}

// Register loads every bundled extension into l: the file formats and the
// directory extension.
func Register(l Loader, opts Options) error {
	var errs []error
	for _, f := range Formats(opts) {
		if err := l.LoadBuiltin(f.Name(), f); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", f.Name(), err))
		}
	}
	if err := l.LoadBuiltin("directory", NewDirectory(opts)); err != nil {
		errs = append(errs, fmt.Errorf("register directory: %w", err))
	}
	return errors.Join(errs...)
}

package extension

import (
	"errors"
	"fmt"
	"io"
)

// Symbol names looked up in a loaded module.
const (
	NativeSymbol = "Extension"
	TableSymbol  = "Functions"
)

// ErrNoSymbol is returned by Module.Lookup when a symbol is absent.
var ErrNoSymbol = errors.New("symbol not found")

// Module is an opened shared module.
type Module interface {
	Lookup(symbol string) (any, error)
	Close() error
}

// Opener opens the module stored at path.
type Opener interface {
	Open(path string) (Module, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Module, error)

func (f OpenerFunc) Open(path string) (Module, error) { return f(path) }

// FirstOf returns an Opener that tries each opener in turn and returns the
// first module that opens.
func FirstOf(openers ...Opener) Opener {
	return OpenerFunc(func(path string) (Module, error) {
		var errs []error
		for _, o := range openers {
			m, err := o.Open(path)
			if err == nil {
				return m, nil
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return nil, fmt.Errorf("open %s: no openers configured", path)
		}
		return nil, errors.Join(errs...)
	})
}

// Handle owns one opened module and the extension it exposes.
type Handle struct {
	Path      string
	Module    Module // nil for in-process extensions
	Extension Extension
	Kind      string
}

// Kinds of handle.
const (
	KindNative  = "native"
	KindAdapted = "adapted"
	KindBuiltin = "builtin"
)

// Open opens path with opener and resolves its extension: a native
// extension symbol first, then a function table wrapped in an Adapter.
// The module is closed again on any failure.
func Open(opener Opener, path string) (*Handle, error) {
	mod, err := opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module: %w", err)
	}

	ext, kind, err := resolve(mod)
	if err != nil {
		mod.Close()
		return nil, err
	}

	return &Handle{Path: path, Module: mod, Extension: ext, Kind: kind}, nil
}

// NewBuiltin wraps an in-process extension in a Handle with no module.
func NewBuiltin(name string, ext Extension) *Handle {
	return &Handle{Path: name, Extension: ext, Kind: KindBuiltin}
}

func resolve(mod Module) (Extension, string, error) {
	if sym, err := mod.Lookup(NativeSymbol); err == nil {
		if ext := asExtension(sym); ext != nil {
			return ext, KindNative, nil
		}
		return nil, "", fmt.Errorf("symbol %s has type %T, not an extension", NativeSymbol, sym)
	}

	sym, err := mod.Lookup(TableSymbol)
	if err != nil {
		return nil, "", fmt.Errorf("module exports neither %s nor %s: %w", NativeSymbol, TableSymbol, err)
	}

	var table *FuncTable
	switch t := sym.(type) {
	case *FuncTable:
		table = t
	case FuncTable:
		table = &t
	default:
		return nil, "", fmt.Errorf("symbol %s has type %T, not a function table", TableSymbol, sym)
	}

	adapter, err := NewAdapter(table)
	if err != nil {
		return nil, "", fmt.Errorf("symbol %s: %w", TableSymbol, err)
	}
	return adapter, KindAdapted, nil
}

// asExtension accepts both a value implementing Extension and, as Go
// plugins return for exported variables, a pointer to an Extension.
func asExtension(sym any) Extension {
	switch v := sym.(type) {
	case *Extension:
		if v != nil {
			return *v
		}
	case Extension:
		return v
	}
	return nil
}

// Close releases the extension and then the module.
func (h *Handle) Close() error {
	var errs []error
	if c, ok := h.Extension.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close extension: %w", err))
		}
	}
	if h.Module != nil {
		if err := h.Module.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close module: %w", err))
		}
	}
	return errors.Join(errs...)
}

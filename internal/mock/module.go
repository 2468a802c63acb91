package mock

import (
	"fmt"

	"github.com/dgallion1/docview/internal/extension"
)

var (
	_ extension.Module = (*Module)(nil)
	_ extension.Opener = (*Opener)(nil)
)

// Module is an in-memory extension.Module backed by a symbol map.
type Module struct {
	Symbols map[string]any
	Closed  bool
	CloseFn func() error
}

func (m *Module) Lookup(symbol string) (any, error) {
	sym, ok := m.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, extension.ErrNoSymbol)
	}
	return sym, nil
}

func (m *Module) Close() error {
	m.Closed = true
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// Opener serves Modules by path. Paths missing from Modules fail to open.
type Opener struct {
	Modules map[string]*Module
	Opened  []string
}

func (o *Opener) Open(path string) (extension.Module, error) {
	m, ok := o.Modules[path]
	if !ok {
		return nil, fmt.Errorf("%s: not a module", path)
	}
	o.Opened = append(o.Opened, path)
	return m, nil
}

// NativeModule returns a Module exporting ext as a native extension.
func NativeModule(ext extension.Extension) *Module {
	return &Module{Symbols: map[string]any{extension.NativeSymbol: ext}}
}

// TableModule returns a Module exporting table as a function table.
func TableModule(table *extension.FuncTable) *Module {
	return &Module{Symbols: map[string]any{extension.TableSymbol: table}}
}

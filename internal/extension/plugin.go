package extension

import (
	"fmt"
	"plugin"
)

// PluginOpener opens Go plugins built with -buildmode=plugin.
var PluginOpener Opener = OpenerFunc(openPlugin)

type goPlugin struct {
	p *plugin.Plugin
}

func openPlugin(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("go plugin: %w", err)
	}
	return &goPlugin{p: p}, nil
}

func (g *goPlugin) Lookup(symbol string) (any, error) {
	if g.p == nil {
		return nil, fmt.Errorf("%s: plugin closed: %w", symbol, ErrNoSymbol)
	}
	sym, err := g.p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoSymbol)
	}
	return sym, nil
}

// Close drops the plugin reference. The Go runtime cannot unmap a plugin,
// so its code stays resident until the process exits.
func (g *goPlugin) Close() error {
	g.p = nil
	return nil
}

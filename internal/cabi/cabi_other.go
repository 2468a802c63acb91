//go:build !(darwin || freebsd || linux)

package cabi

import (
	"errors"
	"runtime"

	"github.com/dgallion1/docview/internal/extension"
)

// TableSymbol is the C symbol holding the function table.
const TableSymbol = "extension_functions"

// Opener rejects every path on platforms without dlopen support.
var Opener extension.Opener = extension.OpenerFunc(Open)

// Open always fails on this platform.
func Open(path string) (extension.Module, error) {
	return nil, errors.New("C extensions are not supported on " + runtime.GOOS)
}

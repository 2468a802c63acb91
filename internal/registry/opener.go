package registry

import (
	"github.com/dgallion1/docview/internal/cabi"
	"github.com/dgallion1/docview/internal/extension"
)

// DefaultOpener tries a C function-table library first and a Go plugin
// second. The C opener only accepts libraries that export the table symbol,
// so Go plugins fall through to the plugin opener.
var DefaultOpener = extension.FirstOf(cabi.Opener, extension.PluginOpener)

package registry

import "errors"

var (
	// ErrNotFound means a path, or the target of a symlink, does not exist
	// or is not the kind of file the operation needs.
	ErrNotFound = errors.New("not found")

	// ErrInvalidExtension means a module could not be opened or exposes
	// neither a native extension nor a complete function table.
	ErrInvalidExtension = errors.New("invalid extension")

	// ErrInvalidNode means a node does not belong to any registered tree.
	ErrInvalidNode = errors.New("invalid node")
)

package parser

import (
	"fmt"
	"io"
	"os"
)

// spool returns r as a file on disk along with its size. A regular
// *os.File is used in place; anything else is copied into a temp file that
// cleanup closes and removes.
func spool(r io.Reader, pattern string) (f *os.File, size int64, cleanup func(), err error) {
	if file, ok := r.(*os.File); ok {
		if info, err := file.Stat(); err == nil && info.Mode().IsRegular() {
			return file, info.Size(), func() {}, nil
		}
	}

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err = io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	return tmp, size, cleanup, nil
}

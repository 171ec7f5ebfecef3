// Copyright 2013-2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"errors"
	"os"
)

// FileVar represents a path to a file.
type FileVar struct {
	// Path is the path to the file.
	Path string
}

var ErrNoPath = errors.New("path not set")

// Set stores the chosen path name in f.Path.
func (f *FileVar) Set(v string) error {
	f.Path = v
	return nil
}

// Read returns the contents of the file, relative to the context.
func (f *FileVar) Read(ctx *Context) ([]byte, error) {
	if f.Path == "" {
		return nil, ErrNoPath
	}
	return os.ReadFile(ctx.AbsPath(f.Path))
}

// IsStdin returns true if the path is "-".
func (f *FileVar) IsStdin() bool {
	return f.Path == "-"
}

// String returns the path to the file.
func (f *FileVar) String() string {
	return f.Path
}

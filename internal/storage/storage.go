// Package storage manages the files produced by trims: temporary
// destinations on local disk and optional publishing to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines where trim outputs are written and published.
type Storage interface {
	// TempPath reserves a new empty file in the temporary directory and
	// returns its path. prefix and ext (e.g. ".mp4") shape the file name.
	TempPath(ctx context.Context, prefix, ext string) (path string, err error)

	// Resolve maps a caller-supplied relative file name to a path inside the
	// temporary directory, creating missing parent directories.
	// Returns ErrOutsideTempDir for absolute names or names that escape it.
	Resolve(ctx context.Context, name string) (path string, err error)

	// Open reads a stored file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Cleanup removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// Publish uploads the file at path under key and returns its URL.
	// Returns ErrS3NotConfigured if publishing is not configured.
	Publish(ctx context.Context, key, path string) (url string, err error)
}

// Package storage stores uploaded files (plant images) on a local
// directory or an S3-compatible bucket.
//
//	disk, err := storage.Open(ctx, storage.FromEnv())
//	err = disk.Put(ctx, "plants/fern.png", r, "image/png")
//	url := disk.URL("plants/fern.png")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/plantnet/plantnet-server/config"
)

// ErrNotExist is returned when a path is missing.
var ErrNotExist = errors.New("storage: file does not exist")

// Disk is the filesystem driver interface.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for path.
	URL(path string) string
}

// Options selects and configures a driver.
type Options struct {
	Driver string // "local" | "s3"

	LocalRoot string
	LocalURL  string

	S3 S3Options
}

type S3Options struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
	URL      string
}

func FromEnv() Options {
	return Options{
		Driver:    config.StorageDefault(),
		LocalRoot: config.StorageLocalRoot(),
		LocalURL:  config.StorageURL(),
		S3: S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		},
	}
}

// Open builds the configured disk.
func Open(ctx context.Context, opts Options) (Disk, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "local":
		return NewLocalDisk(opts.LocalRoot, opts.LocalURL)
	case "s3":
		return NewS3Disk(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("storage: unsupported STORAGE_DISK %q (supported: local, s3)", opts.Driver)
	}
}

// clean rejects absolute paths and parent traversal.
func clean(path string) (string, error) {
	p := strings.TrimLeft(strings.ReplaceAll(path, "\\", "/"), "/")
	if p == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("storage: invalid path %q", path)
		}
	}
	return p, nil
}

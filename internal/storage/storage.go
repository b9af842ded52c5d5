package storage

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Storage is a key-value blob store for cached module sources.
type Storage interface {
	Stat(key string) (Stat, error)
	Get(key string) (io.ReadCloser, Stat, error)
	Put(key string, content io.Reader) error
	Delete(key string) error
}

// Stat is the metadata of a stored blob.
type Stat interface {
	Size() int64
	ModTime() time.Time
}

// StorageOptions selects and configures a storage backend.
type StorageOptions struct {
	Type            string `json:"type"`
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"accessKeyID"`
	SecretAccessKey string `json:"secretAccessKey"`
	// CacheDir is a local directory that fronts a remote backend.
	CacheDir string `json:"cacheDir"`
}

// New creates a storage by the options type, "fs" or "s3".
func New(options *StorageOptions) (Storage, error) {
	switch options.Type {
	case "", "fs":
		return NewFSStorage(options.Endpoint)
	case "s3":
		s3, err := NewS3Storage(options)
		if err != nil {
			return nil, err
		}
		if options.CacheDir != "" {
			fs, err := NewFSStorage(options.CacheDir)
			if err != nil {
				return nil, err
			}
			return NewLayeredStorage(fs, s3), nil
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", options.Type)
	}
}

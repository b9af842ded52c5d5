package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NewFSStorage creates a new storage instance that stores files on the local filesystem.
func NewFSStorage(root string) (Storage, error) {
	if root == "" {
		return nil, errors.New("root directory is required")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(root); err != nil {
		return nil, err
	}
	return &fsStorage{root: root}, nil
}

type fsStorage struct {
	root string
}

// safeJoinPath joins and validates that the resulting path is within fs.root
func (fs *fsStorage) safeJoinPath(key string) (string, error) {
	absPath, err := filepath.Abs(filepath.Join(fs.root, key))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, fs.root+string(os.PathSeparator)) {
		return "", errors.New("invalid file path")
	}
	return absPath, nil
}

func (fs *fsStorage) Stat(key string) (Stat, error) {
	filename, err := fs.safeJoinPath(key)
	if err != nil {
		return nil, ErrNotFound
	}
	fi, err := os.Lstat(filename)
	if err != nil {
		if isNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fi, nil
}

func (fs *fsStorage) Get(key string) (io.ReadCloser, Stat, error) {
	filename, err := fs.safeJoinPath(key)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	file, err := os.Open(filename)
	if err != nil {
		if isNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return file, stat, nil
}

func (fs *fsStorage) Put(key string, content io.Reader) error {
	filename, err := fs.safeJoinPath(key)
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return err
	}

	// write to a temp file then rename
	tmp := filename + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = io.Copy(file, content)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}

func (fs *fsStorage) Delete(key string) error {
	filename, err := fs.safeJoinPath(key)
	if err != nil {
		return ErrNotFound
	}
	err = os.Remove(filename)
	if err != nil && isNotExist(err) {
		return ErrNotFound
	}
	return err
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.HasSuffix(err.Error(), "not a directory")
}

// ensureDir ensures the given directory exists.
func ensureDir(dir string) error {
	_, err := os.Lstat(dir)
	if err != nil && os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

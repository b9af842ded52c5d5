package storage

import (
	"io"
)

// NewLayeredStorage creates a storage that reads from the front storage first
// and falls back to the back storage, copying hits into the front storage.
// Writes go to both.
func NewLayeredStorage(front Storage, back Storage) Storage {
	return &layeredStorage{
		front: front,
		back:  back,
	}
}

type layeredStorage struct {
	front Storage
	back  Storage
}

func (m *layeredStorage) Stat(key string) (stat Stat, err error) {
	stat, err = m.front.Stat(key)
	if err == ErrNotFound {
		stat, err = m.back.Stat(key)
	}
	return
}

func (m *layeredStorage) Get(key string) (content io.ReadCloser, stat Stat, err error) {
	content, stat, err = m.front.Get(key)
	if err == ErrNotFound {
		content, stat, err = m.back.Get(key)
		if err == nil {
			pr, pw := io.Pipe()
			go func(content io.ReadCloser) {
				defer content.Close()
				err := m.front.Put(key, io.TeeReader(content, pw))
				// drain what the front storage did not read
				if err != nil {
					_, err = io.Copy(pw, content)
				}
				pw.CloseWithError(err)
			}(content)
			content = pr
		}
	}
	return
}

func (m *layeredStorage) Put(key string, content io.Reader) (err error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := m.back.Put(key, pr)
		// unblock the front writer if the back storage stopped reading early
		pr.Close()
		done <- err
	}()
	err = m.front.Put(key, io.TeeReader(content, pw))
	pw.CloseWithError(err)
	if backErr := <-done; err == nil {
		err = backErr
	}
	return
}

func (m *layeredStorage) Delete(key string) (err error) {
	err = m.back.Delete(key)
	if err != nil && err != ErrNotFound {
		return
	}
	return m.front.Delete(key)
}

package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/esm-dev/dnt/internal/fetch"
	"github.com/esm-dev/dnt/internal/mime"
	"github.com/esm-dev/dnt/internal/storage"
	logx "github.com/ije/gox/log"
)

const maxModuleSize = 50 * 1024 * 1024

// ErrModuleNotFound is returned when the server responds with 404.
var ErrModuleNotFound = errors.New("module not found")

// Module is a fetched remote module.
type Module struct {
	// URL is the final URL after redirects. Relative imports of the module
	// resolve against it.
	URL       *url.URL
	MediaType mime.MediaType
	Content   []byte
}

// Options configures a Loader.
type Options struct {
	// CacheDir holds the cache index database.
	CacheDir string
	// Storage keeps the module sources. A fs storage under CacheDir is used when nil.
	Storage   storage.Storage
	UserAgent string
	// Timeout of a single fetch in seconds.
	Timeout int
	// Reload ignores cached modules.
	Reload bool
	Logger *logx.Logger
}

// Loader fetches remote modules and caches them across builds.
type Loader struct {
	index     *index
	storage   storage.Storage
	userAgent string
	timeout   int
	reload    bool
	log       *logx.Logger
}

// NewLoader opens the module cache.
func NewLoader(options Options) (*Loader, error) {
	if options.CacheDir == "" {
		return nil, errors.New("missing cache directory")
	}
	if err := os.MkdirAll(options.CacheDir, 0755); err != nil {
		return nil, err
	}
	store := options.Storage
	if store == nil {
		var err error
		store, err = storage.NewFSStorage(options.CacheDir)
		if err != nil {
			return nil, err
		}
	}
	idx, err := openIndex(filepath.Join(options.CacheDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}
	log := options.Logger
	if log == nil {
		log = &logx.Logger{}
		log.SetQuite(true)
	}
	userAgent := options.UserAgent
	if userAgent == "" {
		userAgent = "dnt"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60
	}
	return &Loader{
		index:     idx,
		storage:   store,
		userAgent: userAgent,
		timeout:   timeout,
		reload:    options.Reload,
		log:       log,
	}, nil
}

// Load returns the module at the URL, from the cache when possible.
func (l *Loader) Load(ctx context.Context, u *url.URL) (*Module, error) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	key := u.String()
	if !l.reload {
		m, err := l.loadCached(key)
		if err != nil {
			l.log.Warnf("cache: %s: %v", key, err)
		} else if m != nil {
			l.log.Debugf("cache hit %s", key)
			return m, nil
		}
	}
	return l.fetch(ctx, u)
}

func (l *Loader) loadCached(key string) (*Module, error) {
	record, err := l.index.Get(key)
	if err != nil || record == nil {
		return nil, err
	}
	r, _, err := l.storage.Get(storeKey(key))
	if err != nil {
		if err == storage.ErrNotFound {
			l.index.Delete(key)
			return nil, nil
		}
		return nil, err
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	finalURL, err := url.Parse(record.FinalURL)
	if err != nil {
		return nil, err
	}
	return &Module{
		URL:       finalURL,
		MediaType: mime.Resolve(finalURL.Path, record.ContentType),
		Content:   content,
	}, nil
}

func (l *Loader) fetch(ctx context.Context, u *url.URL) (*Module, error) {
	client, recycle := fetch.NewClient(l.userAgent, l.timeout, 10)
	defer recycle()

	l.log.Infof("Download %s", u)
	resp, err := client.Fetch(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 || resp.StatusCode == 410 {
		return nil, ErrModuleNotFound
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected http status %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxModuleSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxModuleSize {
		return nil, errors.New("module too large")
	}

	finalURL := resp.Request.URL
	contentType := resp.Header.Get("Content-Type")
	record := &indexRecord{
		URL:         u.String(),
		FinalURL:    finalURL.String(),
		ContentType: contentType,
		FetchedAt:   time.Now().UTC(),
	}
	if err := l.storage.Put(storeKey(record.URL), bytes.NewReader(content)); err != nil {
		l.log.Warnf("cache: failed to store %s: %v", record.URL, err)
	} else if err := l.index.Put(record); err != nil {
		l.log.Warnf("cache: failed to index %s: %v", record.URL, err)
	}

	return &Module{
		URL:       finalURL,
		MediaType: mime.Resolve(finalURL.Path, contentType),
		Content:   content,
	}, nil
}

// Len returns the number of cached modules.
func (l *Loader) Len() int {
	return l.index.Len()
}

// Close closes the cache index.
func (l *Loader) Close() error {
	return l.index.Close()
}

func storeKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "modules/" + hex.EncodeToString(sum[:])
}

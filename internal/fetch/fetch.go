package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var clientPool = sync.Pool{
	New: func() any {
		return &FetchClient{Client: &http.Client{}}
	},
}

// FetchClient is a custom HTTP client.
type FetchClient struct {
	*http.Client
	userAgent string
}

// NewClient creates a new FetchClient. At most `maxRedirects` redirects are
// followed.
func NewClient(userAgent string, timeout int, maxRedirects int) (client *FetchClient, recycle func()) {
	client = clientPool.Get().(*FetchClient)
	client.userAgent = userAgent
	client.Timeout = time.Duration(timeout) * time.Second
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return errors.New("stopped after too many redirects")
		}
		return nil
	}
	return client, func() { clientPool.Put(client) }
}

// Fetch sends a GET request and returns the response. The final URL after
// redirects is `resp.Request.URL`.
func (c *FetchClient) Fetch(ctx context.Context, url *url.URL, header http.Header) (resp *http.Response, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		req.Header[key] = values
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.Do(req)
}

package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/mod.ts", http.StatusFound)
		case "/mod.ts":
			w.Header().Set("Content-Type", "application/typescript")
			io.WriteString(w, r.Header.Get("User-Agent"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, recycle := NewClient("dnt-test", 10, 3)
	defer recycle()

	u, _ := url.Parse(server.URL + "/redirect")
	resp, err := client.Fetch(context.Background(), u, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.Request.URL.Path != "/mod.ts" {
		t.Fatalf("expected final url /mod.ts, got %s", resp.Request.URL.Path)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "dnt-test" {
		t.Fatalf("expected user agent to be sent, got %q", data)
	}
}

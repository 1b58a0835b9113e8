package azlyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lyricsd/pkg/source"
)

const songPage = `<html><body>
<div class="col-xs-12 col-lg-8 text-center">
<div>
<!-- Usage of azlyrics.com content by any third-party lyrics provider is prohibited by our licensing agreement. Sorry about that. -->
I dreamed a highway back to you<br>
Under a half moon sky<br>
<br>
Silver stars in a purple sky
</div>
</div>
</body></html>`

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Second},
		baseURL:    server.URL,
	}
}

func TestFetch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, songPage)
	}))
	defer server.Close()

	client := newTestClient(server)
	lyrics, err := client.Fetch(context.Background(), "Gillian Welch", "I Dream a Highway")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotPath != "/lyrics/gillianwelch/idreamahighway.html" {
		t.Errorf("unexpected canonical path %q", gotPath)
	}

	want := "I dreamed a highway back to you\nUnder a half moon sky\n\nSilver stars in a purple sky"
	if lyrics != want {
		t.Errorf("unexpected lyrics:\n%q\nwant:\n%q", lyrics, want)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Fetch(context.Background(), "Nobody", "Nothing")
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchNoLyricsBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance</body></html>")
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Fetch(context.Background(), "Artist", "Title")
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("expected ErrNotFound for page without lyrics block, got %v", err)
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Fetch(context.Background(), "Artist", "Title")
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if errors.Is(err, source.ErrNotFound) {
		t.Error("server failures must not be reported as not-found")
	}
}

func TestFetchTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// advertise more than is sent, then cut the connection so the
		// client sees a mid-body failure
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, songPage)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("server does not support hijacking")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		buf.Flush()
		conn.Close()
	}))
	defer server.Close()

	client := newTestClient(server)
	lyrics, err := client.Fetch(context.Background(), "Artist", "Title")
	if err == nil {
		t.Fatalf("expected error for truncated body, got lyrics %q", lyrics)
	}
	if errors.Is(err, source.ErrNotFound) {
		t.Error("truncated body must not be reported as not-found")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sigur Rós", "sigurros"},
		{"AC/DC", "acdc"},
		{"99 Problems", "99problems"},
		{"Don't Stop Me Now", "dontstopmenow"},
	}
	for _, c := range cases {
		if got := normalize(c.in); got != c.want {
			t.Errorf("normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeArtistDropsLeadingThe(t *testing.T) {
	if got := normalizeArtist("The Beatles"); got != "beatles" {
		t.Errorf("normalizeArtist = %q, want %q", got, "beatles")
	}
	if got := normalizeArtist("Them"); got != "them" {
		t.Errorf("normalizeArtist must only drop the article, got %q", got)
	}
}

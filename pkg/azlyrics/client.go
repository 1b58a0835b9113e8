// Package azlyrics fetches lyrics by scraping azlyrics.com. The site has no
// search API; song pages live at a canonical URL derived from the normalized
// artist and title, so a lookup is a single page fetch.
package azlyrics

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gosimple/unidecode"

	"lyricsd/pkg/source"
)

const defaultTimeout = 10 * time.Second

// lyricsMarker is the comment azlyrics places directly above the lyrics div.
const lyricsMarker = "third-party lyrics provider is prohibited"

// Client is a scraping lyrics provider for azlyrics.com.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an azlyrics client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    "https://www.azlyrics.com",
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "azlyrics"
}

// Fetch retrieves lyrics from the song's canonical page.
func (c *Client) Fetch(ctx context.Context, artist, title string) (string, error) {
	pageURL := fmt.Sprintf("%s/lyrics/%s/%s.html", c.baseURL, normalizeArtist(artist), normalize(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "lyricsd/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", pageURL, source.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	lyrics := extractLyrics(string(body))
	if lyrics == "" {
		return "", fmt.Errorf("%s: %w", pageURL, source.ErrNotFound)
	}
	return lyrics, nil
}

// normalize lowercases, transliterates to ASCII and strips everything that is
// not a letter or digit, matching the site's URL scheme.
func normalize(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	var sb strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// normalizeArtist additionally drops a leading "the", which the site omits
// from artist URLs.
func normalizeArtist(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "the ") {
		trimmed = trimmed[4:]
	}
	return normalize(trimmed)
}

var (
	brTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag = regexp.MustCompile(`<[^>]*>`)
)

// extractLyrics takes the text between the licensing comment and the closing
// tag of the lyrics div.
func extractLyrics(page string) string {
	idx := strings.Index(page, lyricsMarker)
	if idx < 0 {
		return ""
	}
	rest := page[idx:]

	start := strings.Index(rest, "-->")
	if start < 0 {
		return ""
	}
	rest = rest[start+len("-->"):]

	end := strings.Index(rest, "</div>")
	if end < 0 {
		return ""
	}

	// Real line breaks are <br> tags; literal newlines are only HTML
	// formatting and would otherwise double every break.
	text := strings.NewReplacer("\r", "", "\n", "").Replace(rest[:end])
	text = brTag.ReplaceAllString(text, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.Trim(text, "\n ")
}

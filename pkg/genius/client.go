// Package genius fetches lyrics through the Genius song API. The API itself
// only resolves songs to their page URL, so the lyrics text is extracted from
// the song page afterwards.
package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"lyricsd/pkg/source"
)

const defaultTimeout = 10 * time.Second

type searchResponse struct {
	Response struct {
		Hits []hit `json:"hits"`
	} `json:"response"`
}

type hit struct {
	Result struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Path          string `json:"path"`
		PrimaryArtist struct {
			Name string `json:"name"`
		} `json:"primary_artist"`
	} `json:"result"`
}

// Client is a Genius lyrics provider authenticated by an API token.
type Client struct {
	httpClient  *http.Client
	apiBaseURL  string
	pageBaseURL string
	token       string
}

// NewClient creates a Genius client for the given API token.
func NewClient(token string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		apiBaseURL:  "https://api.genius.com",
		pageBaseURL: "https://genius.com",
		token:       token,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "genius"
}

// Fetch searches Genius for the song and extracts the lyrics from its page.
func (c *Client) Fetch(ctx context.Context, artist, title string) (string, error) {
	pageURL, err := c.searchSong(ctx, artist, title)
	if err != nil {
		return "", err
	}

	text, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	lyrics := extractLyrics(text, title)
	if lyrics == "" {
		return "", fmt.Errorf("%s: %w", pageURL, source.ErrNotFound)
	}
	return lyrics, nil
}

func (c *Client) searchSong(ctx context.Context, artist, title string) (string, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(title+" "+artist))
	searchURL := fmt.Sprintf("%s/search?%s", c.apiBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "lyricsd/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	best := pickHit(searchResp.Response.Hits, artist)
	if best == nil {
		return "", fmt.Errorf("no song matching '%s - %s': %w", artist, title, source.ErrNotFound)
	}

	if best.Result.URL != "" {
		return best.Result.URL, nil
	}
	return c.pageBaseURL + best.Result.Path, nil
}

// pickHit prefers the first hit whose primary artist matches, falling back to
// the first hit overall.
func pickHit(hits []hit, artist string) *hit {
	if len(hits) == 0 {
		return nil
	}
	for i := range hits {
		if containsIgnoreCase(hits[i].Result.PrimaryArtist.Name, artist) {
			return &hits[i]
		}
	}
	return &hits[0]
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("User-Agent", "lyricsd/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", pageURL, source.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	return string(body), nil
}

var containerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<div[^>]*data-lyrics-container="true"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?s)<div[^>]*class="Lyrics__Container[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?s)<div[^>]*class="lyrics"[^>]*>(.*?)</div>`),
}

var (
	brTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag = regexp.MustCompile(`<[^>]*>`)
)

// extractLyrics pulls the lyrics text out of a Genius song page.
func extractLyrics(page, title string) string {
	var parts []string
	for _, re := range containerPatterns {
		for _, match := range re.FindAllStringSubmatch(page, -1) {
			if text := cleanFragment(match[1], title); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			break
		}
	}
	return strings.Trim(strings.Join(parts, "\n\n"), "\n")
}

func cleanFragment(fragment, title string) string {
	text := brTag.ReplaceAllString(fragment, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isCruft(strings.TrimSpace(line), title) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Trim(strings.Join(kept, "\n"), "\n")
}

// isCruft matches the page chrome Genius mixes into the lyrics container. The
// "<title> Lyrics" header is matched against the song's actual title so lyric
// lines that merely end in the word "Lyrics" survive.
func isCruft(line, title string) bool {
	switch {
	case line == "Embed", line == "You might also like":
		return true
	case strings.EqualFold(line, title+" Lyrics"):
		return true
	case strings.Contains(line, "Contributors"):
		return true
	}
	return false
}

func containsIgnoreCase(s, substr string) bool {
	norm := func(v string) string { return strings.ReplaceAll(strings.ToLower(v), " ", "") }
	s1, s2 := norm(s), norm(substr)
	return strings.Contains(s1, s2) || strings.Contains(s2, s1)
}

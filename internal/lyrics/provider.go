package lyrics

import (
	"lyricsd/pkg/azlyrics"
	"lyricsd/pkg/genius"
	"lyricsd/pkg/source"
)

// NewProvider picks the remote lyrics source. A Genius API token selects the
// Genius client, otherwise the azlyrics scraper is used.
func NewProvider(apiToken string) source.Provider {
	if apiToken != "" {
		return genius.NewClient(apiToken)
	}
	return azlyrics.NewClient()
}

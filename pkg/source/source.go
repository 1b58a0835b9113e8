// Package source defines the contract shared by all remote lyrics providers.
package source

import (
	"context"
	"errors"
)

// ErrNotFound reports that a provider has no lyrics for the requested song.
// It is a normal outcome, not a failure; any other error returned by Fetch is
// transient (network, HTTP, timeout).
var ErrNotFound = errors.New("lyrics not found")

// Provider fetches plain-text lyrics for a song.
type Provider interface {
	// Fetch returns the lyrics text for the given artist and title.
	// It returns ErrNotFound when the provider has no matching song.
	Fetch(ctx context.Context, artist, title string) (string, error)

	// Name returns the provider name used in logs and document attribution.
	Name() string
}

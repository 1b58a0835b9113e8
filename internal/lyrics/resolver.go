package lyrics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"lyricsd/internal/player"
	"lyricsd/pkg/guess"
	"lyricsd/pkg/lyricscache"
	"lyricsd/pkg/source"
	"lyricsd/pkg/tagstore"
)

var logger = log.With().Str("component", "resolver").Logger()

// TagStore reads and writes the artist, title and lyrics tags of audio files.
type TagStore interface {
	Read(path string) (tagstore.Tags, error)
	Write(path string, t tagstore.Tags) error
}

// Options control how the resolver obtains and post-processes lyrics.
type Options struct {
	ClearHeaders bool
	SaveTags     bool
	Offline      bool
	Timeout      time.Duration
}

// Resolver turns a playing track into a lyrics Document. It tries the file's
// own tags first, then the persistent cache, then the configured remote
// provider. The result for the current track is kept until the track changes,
// so a poll tick reporting the same song never repeats the work.
type Resolver struct {
	provider source.Provider // nil when no provider is configured
	store    TagStore
	cache    *lyricscache.Cache // may be nil
	opts     Options

	memoKey string
	memoDoc *Document
}

// NewResolver builds a resolver. provider and cache may be nil; a nil
// provider behaves like offline mode for remote lookups.
func NewResolver(provider source.Provider, store TagStore, cache *lyricscache.Cache, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Resolver{provider: provider, store: store, cache: cache, opts: opts}
}

// Resolve returns the lyrics document for track. The previous track's result
// is discarded as soon as a different track is asked for.
func (r *Resolver) Resolve(ctx context.Context, track player.Track) *Document {
	key := track.Key()
	if r.memoDoc != nil && r.memoKey == key {
		return r.memoDoc
	}

	doc := r.resolve(ctx, track)
	r.memoKey = key
	r.memoDoc = doc
	return doc
}

func (r *Resolver) resolve(ctx context.Context, track player.Track) *Document {
	var tags tagstore.Tags
	if track.File != "" && r.store != nil {
		t, err := r.store.Read(track.File)
		if err != nil {
			logger.Debug().Err(err).Str("file", track.File).Msg("Tag read failed")
		} else {
			tags = t
		}
	}

	// Lyrics embedded in the file are authoritative and shown untouched.
	if tags.Lyrics != "" {
		lines, timestamps := splitLines(tags.Lyrics)
		logger.Debug().Str("file", track.File).Msg("Using lyrics from tags")
		return &Document{Lines: lines, Timestamps: timestamps, Source: SourceTag}
	}

	if r.opts.Offline {
		return &Document{Source: SourceNone}
	}

	artist, title := track.Artist, track.Title
	if tags.Artist != "" {
		artist = tags.Artist
	}
	if tags.Title != "" {
		title = tags.Title
	}
	// the path guess only fills fields that are still missing, it never
	// overrides what the tags or the player reported
	if (artist == "" || title == "") && track.File != "" {
		guessedArtist, guessedTitle := guess.FromPath(track.File)
		if artist == "" {
			artist = guessedArtist
		}
		if title == "" {
			title = guessedTitle
		}
	}
	if title == "" {
		logger.Debug().Str("file", track.File).Msg("No usable artist/title")
		return &Document{Source: SourceNone}
	}

	if r.provider == nil {
		return &Document{Source: SourceNone}
	}

	if r.cache != nil {
		if text, ok := r.cache.Get(ctx, artist, title); ok {
			return r.buildRemote(text)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	text, err := r.provider.Fetch(fetchCtx, artist, title)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			logger.Info().Str("artist", artist).Str("title", title).
				Str("provider", r.provider.Name()).Msg("Lyrics not found")
		} else {
			logger.Warn().Err(err).Str("provider", r.provider.Name()).Msg("Lyrics fetch failed")
		}
		return &Document{Source: SourceNone}
	}

	doc := r.buildRemote(text)
	if doc.Empty() {
		return &Document{Source: SourceNone}
	}

	if r.cache != nil {
		r.cache.Put(ctx, artist, title, doc.Text())
	}
	if r.opts.SaveTags && track.File != "" && r.store != nil {
		go r.writeBack(track.File, artist, title, doc.Text())
	}
	return doc
}

func (r *Resolver) buildRemote(text string) *Document {
	lines, timestamps := splitLines(text)
	doc := &Document{Lines: lines, Timestamps: timestamps, Source: Source(r.provider.Name())}
	if r.opts.ClearHeaders {
		doc.Lines, doc.Timestamps = clearHeaders(doc.Lines, doc.Timestamps)
		doc.HeaderCleared = true
	}
	return doc
}

func (r *Resolver) writeBack(path, artist, title, text string) {
	err := r.store.Write(path, tagstore.Tags{Artist: artist, Title: title, Lyrics: text})
	if err != nil {
		logger.Warn().Err(err).Str("file", path).Msg("Failed to save lyrics to tags")
		return
	}
	logger.Debug().Str("file", path).Msg("Saved lyrics to tags")
}

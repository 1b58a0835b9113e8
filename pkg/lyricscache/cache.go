// Package lyricscache persists lyrics fetched from remote providers so a song
// played again later resolves without a network round trip. Entries live on
// disk under the cache directory, optionally mirrored to redis when several
// machines share one cache.
package lyricscache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"lyricsd/pkg/redis"
)

var logger = log.With().Str("component", "lyrics-cache").Logger()

// Cache is a disk-backed lyrics cache with an optional redis mirror.
type Cache struct {
	dir string
	rdb *redis.Client
}

// New creates a cache rooted at dir. rdb may be nil.
func New(dir string, rdb *redis.Client) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, rdb: rdb}, nil
}

// Get returns cached lyrics for the song, and whether the cache had them.
func (c *Cache) Get(ctx context.Context, artist, title string) (string, bool) {
	path := c.entryPath(artist, title)
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		logger.Debug().Str("artist", artist).Str("title", title).Msg("Disk cache hit")
		return string(data), true
	}

	if c.rdb == nil {
		return "", false
	}

	text, err := c.rdb.Get(ctx, c.redisKey(artist, title))
	if err != nil {
		logger.Warn().Err(err).Msg("Redis cache read failed")
		return "", false
	}
	if text == "" {
		return "", false
	}

	logger.Debug().Str("artist", artist).Str("title", title).Msg("Redis cache hit")
	// repopulate the disk copy so the next lookup stays local
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to write cache file")
	}
	return text, true
}

// Put stores lyrics for the song. Failures are logged, never fatal.
func (c *Cache) Put(ctx context.Context, artist, title, text string) {
	if text == "" {
		return
	}

	path := c.entryPath(artist, title)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to write cache file")
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, c.redisKey(artist, title), text, 0); err != nil {
			logger.Warn().Err(err).Msg("Redis cache write failed")
		}
	}
}

func (c *Cache) entryPath(artist, title string) string {
	return filepath.Join(c.dir, sanitizeFilename(artist+"-"+title)+".txt")
}

func (c *Cache) redisKey(artist, title string) string {
	return "lyrics:" + strings.ToLower(artist) + "|" + strings.ToLower(title)
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

func sanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "-")
}

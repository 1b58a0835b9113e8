package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricsd/internal/config"
	"lyricsd/internal/ipc"
	"lyricsd/internal/lyrics"
	"lyricsd/internal/player"
	"lyricsd/internal/scroll"
	"lyricsd/pkg/lyricscache"
	"lyricsd/pkg/redis"
	"lyricsd/pkg/tagstore"
)

// how far the poll interval may stretch while the player is gone
const maxBackoff = 30 * time.Second

// Poller reports the player's current state.
type Poller interface {
	Poll() (*player.Sample, error)
}

type App struct {
	cfg       *config.Config
	ipcServer *ipc.Server
	poller    Poller
	resolver  *lyrics.Resolver
	sync      *scroll.Sync

	currentKey string
	doc        *lyrics.Document
	status     string
	interval   time.Duration
}

func New(cfg *config.Config) *App {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var provider = lyrics.NewProvider(cfg.Lyrics.APIToken)
	if cfg.Lyrics.Offline {
		if cfg.Lyrics.APIToken != "" {
			log.Warn().Msg("Both offline mode and an API token are configured, staying offline")
		}
		provider = nil
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		var err error
		rdb, err = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using disk cache only")
			rdb = nil
		}
	}

	cache, err := lyricscache.New(cfg.App.CacheDir, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("cache_dir", cfg.App.CacheDir).Msg("Failed to create lyrics cache")
	}

	resolver := lyrics.NewResolver(provider, tagstore.NewStore(), cache, lyrics.Options{
		ClearHeaders: cfg.Lyrics.ClearHeaders,
		SaveTags:     cfg.Lyrics.SaveTags,
		Offline:      cfg.Lyrics.Offline,
		Timeout:      cfg.App.ResolveTimeout,
	})

	return &App{
		cfg:       cfg,
		ipcServer: ipc.NewServer(cfg.App.SocketPath),
		poller:    player.NewCmus(),
		resolver:  resolver,
		sync:      scroll.New(cfg.Lyrics.AutoScroll),
		interval:  cfg.App.PollInterval,
	}
}

// Run drives the session loop until ctx is cancelled. Player polling, lyrics
// resolution, scrolling and broadcasting all happen on this one goroutine, so
// none of the session state needs locking.
func (a *App) Run(ctx context.Context) error {
	if err := a.ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer a.ipcServer.Close()

	ticker := time.NewTicker(a.cfg.App.PollInterval)
	defer ticker.Stop()

	log.Info().Dur("poll_interval", a.cfg.App.PollInterval).Msg("Starting session loop")

	a.tick(ctx, ticker)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case delta := <-a.ipcServer.Scrolls():
			a.sync.ManualScroll(delta)
			a.broadcast()
		case <-ticker.C:
			a.tick(ctx, ticker)
		}
	}
}

func (a *App) tick(ctx context.Context, ticker *time.Ticker) {
	sample, err := a.poller.Poll()
	if err != nil {
		if errors.Is(err, player.ErrUnavailable) {
			a.backOff(ticker)
			a.clearTrack("player not running")
			a.broadcast()
			return
		}
		log.Error().Err(err).Msg("Player poll failed")
		return
	}

	if a.interval != a.cfg.App.PollInterval {
		a.interval = a.cfg.App.PollInterval
		ticker.Reset(a.interval)
	}

	if sample.Transport == player.Stopped {
		a.clearTrack("stopped")
		a.broadcast()
		return
	}

	key := sample.Track.Key()
	if key != a.currentKey {
		a.currentKey = key
		a.status = "searching"
		a.doc = nil
		a.broadcast()

		doc := a.resolver.Resolve(ctx, sample.Track)
		a.doc = doc
		a.sync.TrackChanged(len(doc.Lines), doc.Timestamps)
		log.Info().Str("track", key).Str("source", string(doc.Source)).
			Int("lines", len(doc.Lines)).Msg("Resolved lyrics")
	}

	if sample.Transport == player.Playing {
		a.sync.Tick(sample.Position, sample.Duration)
	}

	if a.doc != nil && a.doc.Empty() {
		if a.cfg.Lyrics.Offline {
			a.status = "offline, no local lyrics"
		} else {
			a.status = "no lyrics found"
		}
	} else {
		a.status = string(sample.Transport)
	}
	a.broadcast()
}

// backOff stretches the poll interval while the player stays unreachable.
func (a *App) backOff(ticker *time.Ticker) {
	if a.interval >= maxBackoff {
		return
	}
	a.interval *= 2
	if a.interval > maxBackoff {
		a.interval = maxBackoff
	}
	ticker.Reset(a.interval)
	log.Debug().Dur("interval", a.interval).Msg("Player unavailable, backing off")
}

func (a *App) clearTrack(status string) {
	a.currentKey = ""
	a.doc = nil
	a.sync.TrackChanged(0, nil)
	a.status = status
}

func (a *App) broadcast() {
	frame := ipc.Frame{
		Offset: a.sync.Offset(),
		Mode:   string(a.sync.Mode()),
		Source: string(lyrics.SourceNone),
		Status: a.status,
	}
	if a.doc != nil {
		frame.Lines = a.doc.Lines
		frame.Source = string(a.doc.Source)
	}
	a.ipcServer.Broadcast(frame)
}

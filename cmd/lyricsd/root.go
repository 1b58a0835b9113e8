package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lyricsd/internal/app"
	"lyricsd/internal/config"
)

var (
	// global flags, each one overrides the config file when set
	clearHeaders bool
	saveTags     bool
	autoScroll   bool
	offline      bool
	socketPath   string
	pollInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "lyricsd [api-token]",
	Short: "lyrics daemon for cmus",
	Long: `lyricsd follows what cmus is playing and serves the matching lyrics to
renderer clients over a unix socket, scrolled in step with playback.

Lyrics come from the file's own tags when present, otherwise from a remote
provider: Genius when an API token is given, the azlyrics website otherwise.`,
	Version: "1.0.0",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runDaemon,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&clearHeaders, "clear-headers", "c", false, "strip bracketed section headers from fetched lyrics")
	rootCmd.Flags().BoolVarP(&saveTags, "save-tags", "s", false, "write fetched lyrics back into the file's tags")
	rootCmd.Flags().BoolVarP(&autoScroll, "auto-scroll", "a", true, "scroll lyrics in step with playback")
	rootCmd.Flags().BoolVarP(&offline, "offline", "o", false, "never fetch lyrics from the network")
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "unix socket path for renderer clients")
	rootCmd.Flags().DurationVar(&pollInterval, "interval", 0, "player poll interval")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if len(args) == 1 {
		cfg.Lyrics.APIToken = args[0]
	}
	if cmd.Flags().Changed("clear-headers") {
		cfg.Lyrics.ClearHeaders = clearHeaders
	}
	if cmd.Flags().Changed("save-tags") {
		cfg.Lyrics.SaveTags = saveTags
	}
	if cmd.Flags().Changed("auto-scroll") {
		cfg.Lyrics.AutoScroll = autoScroll
	}
	if cmd.Flags().Changed("offline") {
		cfg.Lyrics.Offline = offline
	}
	if socketPath != "" {
		cfg.App.SocketPath = socketPath
	}
	if pollInterval > 0 {
		cfg.App.PollInterval = pollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigChan
		cancel()
	}()

	return app.New(cfg).Run(ctx)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

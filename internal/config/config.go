package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSocketPath     = "/tmp/lyricsd.sock"
	DefaultPollInterval   = 1 * time.Second
	DefaultResolveTimeout = 15 * time.Second
)

func getDefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyricsd")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyricsd_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyricsd")
}

// TomlConfig mirrors the on-disk config file layout. Booleans are pointers
// so an absent key can be told apart from an explicit false.
type TomlConfig struct {
	App struct {
		SocketPath     string `toml:"socket_path"`
		PollInterval   string `toml:"poll_interval"`
		CacheDir       string `toml:"cache_dir"`
		ResolveTimeout string `toml:"resolve_timeout"`
	} `toml:"app"`

	Lyrics struct {
		APIToken     string `toml:"api_token"`
		ClearHeaders *bool  `toml:"clear_headers"`
		SaveTags     *bool  `toml:"save_tags"`
		AutoScroll   *bool  `toml:"auto_scroll"`
		Offline      *bool  `toml:"offline"`
	} `toml:"lyrics"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
}

type AppConfig struct {
	SocketPath     string
	PollInterval   time.Duration
	CacheDir       string
	ResolveTimeout time.Duration
}

type LyricsConfig struct {
	APIToken     string
	ClearHeaders bool
	SaveTags     bool
	AutoScroll   bool
	Offline      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	App    AppConfig
	Lyrics LyricsConfig
	Redis  RedisConfig
}

func getConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyricsd", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lyricsd", "config.toml")
}

func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

// Load reads the config file and fills in defaults. It never fails: a broken
// or missing file falls back to the default configuration.
func Load() *Config {
	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := &Config{
		App: AppConfig{
			SocketPath:     DefaultSocketPath,
			PollInterval:   DefaultPollInterval,
			CacheDir:       getDefaultCacheDir(),
			ResolveTimeout: DefaultResolveTimeout,
		},
		Lyrics: LyricsConfig{
			AutoScroll: true,
		},
		Redis: RedisConfig{
			Addr: "",
			DB:   0,
		},
	}

	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}

	if tomlConfig.App.PollInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.PollInterval); err == nil {
			config.App.PollInterval = duration
		} else {
			log.Printf("WARN: Invalid poll_interval format '%s', using default", tomlConfig.App.PollInterval)
		}
	}

	if tomlConfig.App.CacheDir != "" {
		config.App.CacheDir = tomlConfig.App.CacheDir
	}

	if tomlConfig.App.ResolveTimeout != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.ResolveTimeout); err == nil {
			config.App.ResolveTimeout = duration
		} else {
			log.Printf("WARN: Invalid resolve_timeout format '%s', using default", tomlConfig.App.ResolveTimeout)
		}
	}

	if tomlConfig.Lyrics.APIToken != "" {
		config.Lyrics.APIToken = tomlConfig.Lyrics.APIToken
	}
	if tomlConfig.Lyrics.ClearHeaders != nil {
		config.Lyrics.ClearHeaders = *tomlConfig.Lyrics.ClearHeaders
	}
	if tomlConfig.Lyrics.SaveTags != nil {
		config.Lyrics.SaveTags = *tomlConfig.Lyrics.SaveTags
	}
	if tomlConfig.Lyrics.AutoScroll != nil {
		config.Lyrics.AutoScroll = *tomlConfig.Lyrics.AutoScroll
	}
	if tomlConfig.Lyrics.Offline != nil {
		config.Lyrics.Offline = *tomlConfig.Lyrics.Offline
	}

	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}
	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}
	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}

	return config
}

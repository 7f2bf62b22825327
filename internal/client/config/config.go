package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/dmitrijs2005/dsuploader/internal/client/chunker"
)

const (
	DefaultChunkSize = 2 * 1024 * 1024

	appDir      = "dsuploader"
	historyFile = "history.db"
)

// defaultDatabasePath places the journal under the user's XDG data home.
var defaultDatabasePath = func() string {
	return filepath.Join(xdg.DataHome, appDir, historyFile)
}

// Config holds runtime settings for the uploader CLI.
//
// Units: ChunkSize is in bytes; ReleaseTimeout bounds the best-effort
// session release call sent when an upload is cancelled.
type Config struct {
	ServerBaseURL     string
	AccessToken       string
	ChunkSize         int64
	ChecksumAlgorithm string
	ReleaseTimeout    time.Duration
	DatabasePath      string
	LogLevel          string
	LogFormat         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.AccessToken = ""
	c.ChunkSize = DefaultChunkSize
	c.ChecksumAlgorithm = chunker.AlgorithmSHA256
	c.ReleaseTimeout = 10 * time.Second
	c.DatabasePath = defaultDatabasePath()
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports the first setting the uploader cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerBaseURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q: want http(s)://host[:port]", c.ServerBaseURL)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size %d: %w", c.ChunkSize, chunker.ErrInvalidChunkSize)
	}
	if _, err := chunker.NewChecksum(c.ChecksumAlgorithm); err != nil {
		return err
	}
	if c.ReleaseTimeout <= 0 {
		return errors.New("release timeout must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format %q: want text or json", c.LogFormat)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (.env first), a JSON file (if given with -c/-config) and
// command-line flags. Later sources take precedence over earlier ones.
// Malformed input panics.
func LoadConfig() *Config {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, ".env")
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

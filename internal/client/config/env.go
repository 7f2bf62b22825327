package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvServerURL      = "DSU_SERVER_URL"
	EnvAccessToken    = "DSU_ACCESS_TOKEN"
	EnvChunkSize      = "DSU_CHUNK_SIZE"
	EnvChecksum       = "DSU_CHECKSUM"
	EnvReleaseTimeout = "DSU_RELEASE_TIMEOUT"
	EnvDatabase       = "DSU_DATABASE"
	EnvLogLevel       = "DSU_LOG_LEVEL"
	EnvLogFormat      = "DSU_LOG_FORMAT"
)

// parseEnv overlays Config with DSU_* variables. Variables from envFile
// (dotenv format, optional) are used only when the process environment
// does not set them. DSU_RELEASE_TIMEOUT takes a Go duration ("5s").
func parseEnv(cfg *Config, envFile string) {
	fileVars := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = m
		case !errors.Is(err, fs.ErrNotExist):
			panic(err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	strVars := map[string]*string{
		EnvServerURL:   &cfg.ServerBaseURL,
		EnvAccessToken: &cfg.AccessToken,
		EnvChecksum:    &cfg.ChecksumAlgorithm,
		EnvDatabase:    &cfg.DatabasePath,
		EnvLogLevel:    &cfg.LogLevel,
		EnvLogFormat:   &cfg.LogFormat,
	}
	for key, dst := range strVars {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvChunkSize); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		cfg.ChunkSize = n
	}
	if v, ok := lookup(EnvReleaseTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.ReleaseTimeout = d
	}
}

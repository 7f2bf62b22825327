package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dsuploader/internal/flagx"
	"github.com/dmitrijs2005/dsuploader/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration, so "10s" and integer nanoseconds both work.
// Absent or zero fields leave the Config untouched.
type JsonConfig struct {
	ServerBaseURL     string         `json:"server_url"`
	AccessToken       string         `json:"access_token"`
	ChunkSize         int64          `json:"chunk_size"`
	ChecksumAlgorithm string         `json:"checksum"`
	ReleaseTimeout    timex.Duration `json:"release_timeout"`
	DatabasePath      string         `json:"database"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`
}

// parseJson overlays Config with values from the JSON file named by -c or
// -config in args. Without either flag it does nothing. Read or decode
// errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.ChecksumAlgorithm, jc.ChecksumAlgorithm)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.ChunkSize != 0 {
		cfg.ChunkSize = jc.ChunkSize
	}
	if jc.ReleaseTimeout.Duration != 0 {
		cfg.ReleaseTimeout = jc.ReleaseTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

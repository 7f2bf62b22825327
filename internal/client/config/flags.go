package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/flagx"
)

var knownFlags = []string{"-a", "-t", "-k", "-x", "-d", "-l", "-f", "-r"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   server base url
//	-t string   access token
//	-k int      chunk size in bytes
//	-x string   checksum algorithm (sha256, blake2b)
//	-d string   journal database path
//	-l string   log level
//	-f string   log format (text, json)
//	-r int      session release timeout in seconds
//
// Args are filtered with flagx.FilterArgs first, so -c and positional
// arguments do not get in the way. Parse errors panic.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "server base url")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.Int64Var(&cfg.ChunkSize, "k", cfg.ChunkSize, "chunk size (bytes)")
	fs.StringVar(&cfg.ChecksumAlgorithm, "x", cfg.ChecksumAlgorithm, "checksum algorithm")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "journal database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	releaseTimeout := fs.Int("r", int(cfg.ReleaseTimeout.Seconds()), "session release timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			cfg.ReleaseTimeout = time.Duration(*releaseTimeout) * time.Second
		}
	})
}

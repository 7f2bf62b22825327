// Package config loads runtime configuration for the uploader CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults). The journal lives in
//     $XDG_DATA_HOME/dsuploader/history.db unless overridden.
//  2. Environment: DSU_* variables, falling back to a .env file in the
//     working directory.
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
//	{
//	  "server_url": "https://console.example.com",
//	  "access_token": "eyJ...",
//	  "chunk_size": 2097152,
//	  "checksum": "sha256",
//	  "release_timeout": "10s",
//	  "database": "/home/me/.local/share/dsuploader/history.db",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// LoadConfig panics on malformed input; call (*Config).Validate before use.
package config

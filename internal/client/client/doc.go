// Package client contains the transport side of the dataset uploader.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for the three
//     upload calls: Negotiate (open a session for a dataset), SendChunk (one
//     chunk as multipart/form-data) and Release (best-effort session drop).
//  2. A concrete HTTP implementation (see HTTPClient) that attaches the
//     bearer token, rejects an expired JWT before going to the network,
//     reports chunk progress as the connection consumes the body, and maps
//     HTTP failures to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     upload journal, an SQLite database migrated with embedded goose
//     migrations.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrTokenExpired, ErrServer,
// ErrBadResponse. Transport errors keep their cause in the chain, so
// context.Canceled stays matchable after a cancelled request.
//
// # Timeouts
//
// HTTPClient sets no request timeout of its own. Deadlines come only from
// the caller's context.
package client

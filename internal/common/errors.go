// Package common defines sentinel errors shared by the uploader layers.
// Callers should use errors.Is to match these values; the concrete errors
// returned by the coordinator wrap both the taxonomy sentinel and the cause.
package common

import "errors"

var (
	// Registry-level errors.
	ErrNotFound   = errors.New("not found")
	ErrTaskExists = errors.New("upload already in progress")

	// Request validation.
	ErrNoFiles = errors.New("no files selected")

	// Terminal task outcomes. Every failed or cancelled task carries exactly
	// one of these.
	ErrPreflight   = errors.New("preflight integrity check failed")
	ErrNegotiation = errors.New("upload session negotiation failed")
	ErrTransfer    = errors.New("chunk transfer failed")
	ErrCancelled   = errors.New("upload cancelled")
)

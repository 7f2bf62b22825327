package client

import "context"

// NegotiateRequest declares the size of an upload before any chunk is sent.
type NegotiateRequest struct {
	TotalFileNum int    `json:"totalFileNum"`
	TotalSize    int64  `json:"totalSize"`
	DatasetID    string `json:"datasetId"`
}

type negotiateResponse struct {
	SessionID string `json:"sessionId"`
}

type releaseRequest struct {
	SessionID string `json:"sessionId"`
}

// ChunkRequest is one chunk of one file. FileNo and ChunkNo are 1-based and
// TotalChunkNum is the chunk count of the file, sent with every chunk so the
// server can detect truncation.
type ChunkRequest struct {
	SessionID     string
	FileNo        int
	ChunkNo       int
	FileName      string
	FileSize      int64
	TotalChunkNum int
	CheckSumHex   string
	ContentType   string
	Data          []byte
}

// ProgressFunc receives the cumulative number of chunk bytes handed to the
// connection for the request in flight.
type ProgressFunc func(sent int64)

// Client is the transport contract of the upload coordinator.
type Client interface {
	// Negotiate opens an upload session for a dataset and returns its id.
	Negotiate(ctx context.Context, req NegotiateRequest) (string, error)

	// SendChunk transmits one chunk. Cancelling ctx aborts the request.
	SendChunk(ctx context.Context, req ChunkRequest, onProgress ProgressFunc) error

	// Release asks the server to drop a session. Best effort.
	Release(ctx context.Context, sessionID string) error
}

package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/dsuploader/internal/client/chunker"
	"github.com/dmitrijs2005/dsuploader/internal/client/client"
	"github.com/dmitrijs2005/dsuploader/internal/client/events"
	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/client/registry"
	"github.com/dmitrijs2005/dsuploader/internal/logging"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake transport
 *************/

type sentChunk struct {
	client.ChunkRequest
	size       int
	checksumOK bool
}

type fakeClient struct {
	client.Client

	mu           sync.Mutex
	negotiations []client.NegotiateRequest
	chunks       []sentChunk
	releases     []string

	// optional overrides
	negotiateFn func(ctx context.Context, req client.NegotiateRequest) (string, error)
	sendFn      func(ctx context.Context, req client.ChunkRequest) error
	progressFn  func(req client.ChunkRequest, onProgress client.ProgressFunc)
}

func (f *fakeClient) Negotiate(ctx context.Context, req client.NegotiateRequest) (string, error) {
	f.mu.Lock()
	f.negotiations = append(f.negotiations, req)
	fn := f.negotiateFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "sess-" + req.DatasetID, nil
}

func (f *fakeClient) SendChunk(ctx context.Context, req client.ChunkRequest, onProgress client.ProgressFunc) error {
	sum := sha256.Sum256(req.Data)
	rec := sentChunk{ChunkRequest: req, size: len(req.Data), checksumOK: hex.EncodeToString(sum[:]) == req.CheckSumHex}
	rec.Data = nil

	f.mu.Lock()
	f.chunks = append(f.chunks, rec)
	fn, pfn := f.sendFn, f.progressFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, req); err != nil {
			return err
		}
	}
	if pfn != nil {
		pfn(req, onProgress)
	}
	if onProgress != nil {
		onProgress(int64(len(req.Data) / 2))
		onProgress(int64(len(req.Data)))
	}
	return nil
}

func (f *fakeClient) Release(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, sessionID)
	return nil
}

func (f *fakeClient) sent() []sentChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentChunk(nil), f.chunks...)
}

func (f *fakeClient) negotiated() []client.NegotiateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.NegotiateRequest(nil), f.negotiations...)
}

func (f *fakeClient) released() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.releases...)
}

/*************
 * Recorders
 *************/

type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.UploadTask
	updates   []events.DatasetUpdate
	statuses  []events.DatasetStatus
}

func (r *recorder) history(id string) []models.UploadTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.UploadTask
	for _, snap := range r.snapshots {
		for _, t := range snap {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out
}

func (r *recorder) datasetUpdates() []events.DatasetUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.DatasetUpdate(nil), r.updates...)
}

type harness struct {
	svc  UploadService
	reg  *registry.Registry
	bus  *events.Bus
	fc   *fakeClient
	rec  *recorder
	opts UploadOptions
}

func newHarness(t *testing.T, chunkSize int64) *harness {
	t.Helper()

	h := &harness{
		bus:  events.NewBus(),
		fc:   &fakeClient{},
		rec:  &recorder{},
		opts: UploadOptions{ChunkSize: chunkSize},
	}
	h.reg = registry.New(func(tasks []models.UploadTask) { h.bus.TasksChanged.Publish(tasks) })

	h.bus.TasksChanged.Subscribe(func(tasks []models.UploadTask) {
		h.rec.mu.Lock()
		h.rec.snapshots = append(h.rec.snapshots, tasks)
		h.rec.mu.Unlock()
	})
	h.bus.DatasetUpdated.Subscribe(func(u events.DatasetUpdate) {
		h.rec.mu.Lock()
		h.rec.updates = append(h.rec.updates, u)
		h.rec.mu.Unlock()
	})
	h.bus.DatasetStatusChanged.Subscribe(func(s events.DatasetStatus) {
		h.rec.mu.Lock()
		h.rec.statuses = append(h.rec.statuses, s)
		h.rec.mu.Unlock()
	})

	h.svc = NewUploadService(h.fc, h.reg, h.bus, nil, h.opts, logging.Discard())
	t.Cleanup(h.svc.Wait)
	return h
}

func writeFile(t *testing.T, dir, name string, size int) models.FileDescriptor {
	t.Helper()
	data := bytes.Repeat([]byte("0123456789abcdef"), size/16+1)[:size]
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	fd, err := chunker.Describe(path)
	require.NoError(t, err)
	return fd
}

func request(id string, files ...models.FileDescriptor) models.UploadRequest {
	return models.UploadRequest{Dataset: models.Dataset{ID: id, Title: "Dataset " + id}, Files: files}
}

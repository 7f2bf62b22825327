package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/client/chunker"
	"github.com/dmitrijs2005/dsuploader/internal/client/client"
	"github.com/dmitrijs2005/dsuploader/internal/client/events"
	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/client/registry"
	"github.com/dmitrijs2005/dsuploader/internal/client/repositories/history"
	"github.com/dmitrijs2005/dsuploader/internal/common"
	"github.com/dmitrijs2005/dsuploader/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultChunkSize      = 2 * 1024 * 1024
	DefaultReleaseTimeout = 10 * time.Second
)

// UploadService coordinates chunked dataset uploads. Every started upload
// runs on its own goroutine; at most one upload per dataset is active.
type UploadService interface {
	// Start registers a task for req.Dataset and begins uploading req.Files
	// in the background. The task runs until it completes, fails, is
	// cancelled with Cancel, or ctx is done.
	Start(ctx context.Context, req models.UploadRequest) (*Handle, error)

	// Cancel aborts the active upload for datasetID. Repeated calls while
	// the upload is winding down return nil; an id with no upload returns
	// common.ErrNotFound. A Cancel racing the Start of the same upload
	// waits until Start has recorded and announced it, so it must not be
	// called from a DatasetStatusChanged or TaskPopover handler.
	Cancel(ctx context.Context, datasetID string) error

	// Tasks returns the active tasks, newest first.
	Tasks() []models.UploadTask

	// Wait blocks until every upload goroutine and pending session release
	// has returned.
	Wait()

	// Listen starts an upload for every request published on
	// bus.UploadRequested until ctx is done or the returned stop is called.
	Listen(ctx context.Context, bus *events.Bus) (stop func())
}

type UploadOptions struct {
	ChunkSize      int64
	Checksum       chunker.Checksum
	ReleaseTimeout time.Duration
}

// Handle follows one started upload.
type Handle struct {
	DatasetID string

	done chan struct{}
	err  error
}

// Done is closed once the upload goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error of the upload: nil on completion, an
// error matching one of the common task sentinels otherwise. It returns nil
// until Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the upload ends and returns Err.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

type uploadJob struct {
	id     string
	title  string
	runID  string
	files  []models.FileDescriptor
	total  int64
	cancel context.CancelFunc
	handle *Handle
	log    logging.Logger

	// closed once Start has journaled and announced the upload
	ready chan struct{}

	progress    *Progress
	releaseOnce sync.Once

	mu         sync.Mutex
	sessionID  string
	terminated bool
	state      models.State
	err        error
}

type uploadService struct {
	client   client.Client
	registry *registry.Registry
	bus      *events.Bus
	journal  history.Repository
	log      logging.Logger

	chunkSize      int64
	checksum       chunker.Checksum
	releaseTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]*uploadJob
	wg   sync.WaitGroup
}

// NewUploadService wires the coordinator. journal may be nil; zero
// options fall back to defaults.
func NewUploadService(c client.Client, reg *registry.Registry, bus *events.Bus, journal history.Repository, opts UploadOptions, log logging.Logger) UploadService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Checksum == nil {
		opts.Checksum, _ = chunker.NewChecksum(chunker.AlgorithmSHA256)
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = DefaultReleaseTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	if bus == nil {
		bus = events.NewBus()
	}

	return &uploadService{
		client:         c,
		registry:       reg,
		bus:            bus,
		journal:        journal,
		log:            log,
		chunkSize:      opts.ChunkSize,
		checksum:       opts.Checksum,
		releaseTimeout: opts.ReleaseTimeout,
		jobs:           make(map[string]*uploadJob),
	}
}

func (s *uploadService) Start(ctx context.Context, req models.UploadRequest) (*Handle, error) {
	id := req.Dataset.ID
	if id == "" {
		return nil, errors.New("dataset id is empty")
	}
	if len(req.Files) == 0 {
		return nil, common.ErrNoFiles
	}

	files := make([]models.FileDescriptor, len(req.Files))
	for i, f := range req.Files {
		chunks, err := chunker.Slice(f.Size, s.chunkSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrPreflight, f.Name, err)
		}
		f.Chunks = chunks
		files[i] = f
	}

	s.mu.Lock()
	if prev, ok := s.jobs[id]; ok && !prev.isTerminated() {
		s.mu.Unlock()
		return nil, fmt.Errorf("dataset %s: %w", id, common.ErrTaskExists)
	}

	task := models.UploadTask{
		ID:         id,
		Title:      req.Dataset.Title,
		State:      models.StateCreated,
		BytesTotal: models.TotalSize(files),
		CreatedAt:  time.Now(),
	}
	if err := s.registry.Create(task); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &uploadJob{
		id:       id,
		title:    task.Title,
		runID:    uuid.NewString(),
		files:    files,
		total:    task.BytesTotal,
		cancel:   cancel,
		handle:   &Handle{DatasetID: id, done: make(chan struct{})},
		progress: NewProgress(task.BytesTotal),
		state:    models.StateCreated,
		ready:    make(chan struct{}),
	}
	j.log = s.log.With("dataset", id, "run", j.runID)

	s.jobs[id] = j
	s.wg.Add(1)
	s.mu.Unlock()

	s.journalBegin(ctx, j)

	s.bus.DatasetStatusChanged.Publish(events.DatasetStatus{DatasetID: id, Status: events.StatusUploading})
	s.bus.TaskPopover.Publish(events.Popover{Visible: true})

	j.log.Info(ctx, "upload started", "files", len(files), "bytes", j.total)
	close(j.ready)

	go s.run(jobCtx, j)

	return j.handle, nil
}

func (s *uploadService) Cancel(ctx context.Context, datasetID string) error {
	s.mu.Lock()
	j, ok := s.jobs[datasetID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("dataset %s: %w", datasetID, common.ErrNotFound)
	}

	select {
	case <-j.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.terminate(ctx, j, models.StateCancelled, fmt.Errorf("%w: by request", common.ErrCancelled)) {
		j.log.Info(ctx, "upload cancelled")
	}
	return nil
}

func (s *uploadService) Tasks() []models.UploadTask {
	return s.registry.List()
}

func (s *uploadService) Wait() {
	s.wg.Wait()
}

func (s *uploadService) Listen(ctx context.Context, bus *events.Bus) func() {
	unsubscribe := bus.UploadRequested.Subscribe(func(req models.UploadRequest) {
		if _, err := s.Start(ctx, req); err != nil {
			s.log.Error(ctx, "upload request rejected", "dataset", req.Dataset.ID, "error", err)
		}
	})
	stopAfter := context.AfterFunc(ctx, unsubscribe)

	return func() {
		stopAfter()
		unsubscribe()
	}
}

func (s *uploadService) run(ctx context.Context, j *uploadJob) {
	defer func() {
		j.cancel()

		s.mu.Lock()
		if s.jobs[j.id] == j {
			delete(s.jobs, j.id)
		}
		s.mu.Unlock()

		j.mu.Lock()
		j.handle.err = j.err
		j.mu.Unlock()
		close(j.handle.done)

		s.wg.Done()
	}()

	err := s.transfer(ctx, j)

	state := models.StateCompleted
	switch {
	case errors.Is(err, common.ErrCancelled):
		state = models.StateCancelled
	case err != nil:
		state = models.StateFailed
	}

	if s.terminate(ctx, j, state, err) {
		switch state {
		case models.StateCompleted:
			j.log.Info(ctx, "upload completed", "bytes", j.total)
		case models.StateCancelled:
			j.log.Info(ctx, "upload cancelled", "error", err)
		default:
			j.log.Error(ctx, "upload failed", "error", err)
		}
	}
}

// transfer drives one task from preflight to its last acknowledged chunk.
func (s *uploadService) transfer(ctx context.Context, j *uploadJob) error {
	if err := Preflight(j.files); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrCancelled, err)
	}

	s.update(j, func(t *models.UploadTask) { t.State = models.StateNegotiating })

	sid, err := s.client.Negotiate(ctx, client.NegotiateRequest{
		TotalFileNum: len(j.files),
		TotalSize:    j.total,
		DatasetID:    j.id,
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}
		return fmt.Errorf("%w: %w", common.ErrNegotiation, err)
	}

	j.mu.Lock()
	j.sessionID = sid
	late := j.terminated
	j.mu.Unlock()
	if late {
		// cancelled while negotiating; the session exists only now
		s.release(ctx, j, sid)
		return fmt.Errorf("%w: during negotiation", common.ErrCancelled)
	}

	s.update(j, func(t *models.UploadTask) {
		t.SessionID = sid
		t.State = models.StateTransmitting
	})
	if s.journal != nil {
		if err := s.journal.SetSession(context.WithoutCancel(ctx), j.runID, sid); err != nil {
			j.log.Warn(ctx, "journal session update failed", "error", err)
		}
	}
	j.log.Debug(ctx, "session negotiated", "session", sid)

	for i := range j.files {
		if err := s.sendFile(ctx, j, sid, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *uploadService) sendFile(ctx context.Context, j *uploadJob, sid string, i int) error {
	f := &j.files[i]

	fh, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrTransfer, f.Name, err)
	}
	defer fh.Close()

	for k := range f.Chunks {
		c := &f.Chunks[k]

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}

		data, err := chunker.ReadChunk(fh, *c, nil)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", common.ErrTransfer, f.Name, err)
		}
		c.Checksum = s.checksum(data)

		gen := j.progress.Begin(c.Length)
		err = s.client.SendChunk(ctx, client.ChunkRequest{
			SessionID:     sid,
			FileNo:        i + 1,
			ChunkNo:       c.Index,
			FileName:      f.Name,
			FileSize:      f.Size,
			TotalChunkNum: len(f.Chunks),
			CheckSumHex:   c.Checksum,
			ContentType:   f.ContentType,
			Data:          data,
		}, func(sent int64) {
			if pct, up := j.progress.Observe(gen, sent); up {
				loaded := j.progress.Loaded()
				s.update(j, func(t *models.UploadTask) {
					t.Percent = max(t.Percent, pct)
					t.BytesLoaded = max(t.BytesLoaded, loaded)
				})
			}
		})
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", common.ErrCancelled, err)
			}
			return fmt.Errorf("%w: %s chunk %d/%d: %w", common.ErrTransfer, f.Name, c.Index, len(f.Chunks), err)
		}

		pct := j.progress.Advance(c.Length)
		loaded := j.progress.Loaded()
		s.update(j, func(t *models.UploadTask) {
			t.Percent = max(t.Percent, pct)
			t.BytesLoaded = max(t.BytesLoaded, loaded)
		})
		j.log.Debug(ctx, "chunk sent", "file", i+1, "chunk", c.Index, "of", len(f.Chunks), "bytes", c.Length)
	}
	return nil
}

// update patches the registry entry of j unless j already ended.
func (s *uploadService) update(j *uploadJob, patch func(t *models.UploadTask)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminated {
		return
	}
	s.registry.Update(j.id, patch)
}

// terminate performs the single terminal transition of j. It reports
// whether this call was the one that did it.
func (s *uploadService) terminate(ctx context.Context, j *uploadJob, state models.State, cause error) bool {
	j.mu.Lock()
	if j.terminated {
		j.mu.Unlock()
		return false
	}
	j.terminated = true
	j.state = state
	j.err = cause
	sid := j.sessionID

	if state == models.StateCancelled {
		s.registry.Update(j.id, func(t *models.UploadTask) {
			t.Cancelled = true
			t.State = state
		})
	}
	s.registry.Remove(j.id)
	j.mu.Unlock()

	j.cancel()

	if state == models.StateCancelled && sid != "" {
		s.release(ctx, j, sid)
	}

	s.bus.DatasetUpdated.Publish(events.DatasetUpdate{DatasetID: j.id, State: state, Err: cause})
	if s.registry.Len() == 0 {
		s.bus.TaskPopover.Publish(events.Popover{Visible: false})
	}

	s.journalFinish(ctx, j, state, cause)
	return true
}

// release asks the server to drop the session of j, at most once and
// without blocking the caller.
func (s *uploadService) release(ctx context.Context, j *uploadJob, sid string) {
	j.releaseOnce.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.releaseTimeout)
			defer cancel()

			if err := s.client.Release(rctx, sid); err != nil {
				j.log.Warn(rctx, "session release failed", "session", sid, "error", err)
				return
			}
			j.log.Debug(rctx, "session released", "session", sid)
		}()
	})
}

func (s *uploadService) journalBegin(ctx context.Context, j *uploadJob) {
	if s.journal == nil {
		return
	}

	rec := models.HistoryRecord{
		RunID:      j.runID,
		DatasetID:  j.id,
		Title:      j.title,
		State:      models.StateCreated,
		BytesTotal: j.total,
		Files:      make([]models.HistoryFile, 0, len(j.files)),
	}
	for i, f := range j.files {
		rec.Files = append(rec.Files, models.HistoryFile{
			FileNo:      i + 1,
			Name:        f.Name,
			Size:        f.Size,
			TotalChunks: len(f.Chunks),
		})
	}

	if err := s.journal.Begin(context.WithoutCancel(ctx), rec); err != nil {
		j.log.Warn(ctx, "journal insert failed", "error", err)
	}
}

func (s *uploadService) journalFinish(ctx context.Context, j *uploadJob, state models.State, cause error) {
	if s.journal == nil {
		return
	}

	var errText string
	if cause != nil {
		errText = cause.Error()
	}
	if err := s.journal.Finish(context.WithoutCancel(ctx), j.runID, state, j.progress.Loaded(), errText); err != nil {
		j.log.Warn(ctx, "journal finish failed", "error", err)
	}
}

func (j *uploadJob) isTerminated() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.terminated
}

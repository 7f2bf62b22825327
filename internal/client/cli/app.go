package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/client/chunker"
	"github.com/dmitrijs2005/dsuploader/internal/client/client"
	"github.com/dmitrijs2005/dsuploader/internal/client/config"
	"github.com/dmitrijs2005/dsuploader/internal/client/events"
	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/client/registry"
	"github.com/dmitrijs2005/dsuploader/internal/client/repositories/history"
	"github.com/dmitrijs2005/dsuploader/internal/client/services"
	"github.com/dmitrijs2005/dsuploader/internal/logging"
	"golang.org/x/sync/errgroup"
)

// promptToken is the AccessToken value that makes NewApp read the token
// from the terminal.
const promptToken = "-"

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	bus      *events.Bus
	uploads  services.UploadService
	journal  history.Repository
	reader   *bufio.Reader
	progress *progressLine
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()
	logger := logging.New(c.LogLevel, c.LogFormat)

	token := c.AccessToken
	if token == promptToken {
		var err error
		if token, err = GetToken(os.Stderr); err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	api, err := client.NewDatasetUploadClient(c.ServerBaseURL, token)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	checksum, err := chunker.NewChecksum(c.ChecksumAlgorithm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	bus := events.NewBus()
	reg := registry.New(func(tasks []models.UploadTask) { bus.TasksChanged.Publish(tasks) })
	journal := history.NewSQLiteRepository(db)

	uploads := services.NewUploadService(api, reg, bus, journal, services.UploadOptions{
		ChunkSize:      c.ChunkSize,
		Checksum:       checksum,
		ReleaseTimeout: c.ReleaseTimeout,
	}, logger)

	a := newApp(c, logger, bus, uploads, journal, os.Stdin, newProgressLine(os.Stderr, int(os.Stderr.Fd())))
	a.db = db
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, bus *events.Bus, uploads services.UploadService,
	journal history.Repository, in io.Reader, progress *progressLine) *App {
	a := &App{
		config:   c,
		log:      logger,
		bus:      bus,
		uploads:  uploads,
		journal:  journal,
		reader:   bufio.NewReader(in),
		progress: progress,
	}
	bus.TasksChanged.Subscribe(progress.Observe)
	bus.DatasetUpdated.Subscribe(a.reportOutcome)
	return a
}

// Run starts the REPL and the progress line and blocks until the user
// exits or ctx is done. Uploads still active at that point are cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Dataset uploader (type 'help' for commands)")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()

		// a pending read on stdin cannot be interrupted
		done := make(chan struct{})
		go func() {
			defer close(done)
			runREPL(gctx, a, a.status, bufio.NewScanner(a.reader))
		}()

		select {
		case <-done:
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		a.progress.Run(gctx)
		return nil
	})
	err := g.Wait()

	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx := context.Background()

	if n := len(a.uploads.Tasks()); n > 0 {
		printlnFn(fmt.Sprintf("Cancelling %d active upload(s)...", n))
		for _, t := range a.uploads.Tasks() {
			_ = a.uploads.Cancel(ctx, t.ID)
		}
	}

	done := make(chan struct{})
	go func() {
		a.uploads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.config.ReleaseTimeout + time.Second):
		a.log.Warn(ctx, "gave up waiting for uploads to stop")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(ctx, "closing database", "error", err)
		}
	}
}

func (a *App) status() string {
	n := len(a.uploads.Tasks())
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("(%d active)", n)
}

// reportOutcome surfaces the end of an upload to the user.
func (a *App) reportOutcome(u events.DatasetUpdate) {
	switch u.State {
	case models.StateCompleted:
		printlnFn(fmt.Sprintf("Upload %s completed", u.DatasetID))
	case models.StateCancelled:
		printlnFn(fmt.Sprintf("Upload %s cancelled", u.DatasetID))
	default:
		printlnFn(fmt.Sprintf("Upload %s failed: %v", u.DatasetID, u.Err))
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dsuploader/internal/client/chunker"
	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dustin/go-humanize"
)

const defaultHistoryLimit = 10

// Upload starts an upload. args are <dataset-id> <title> <file>...; with
// no args the values are asked for interactively.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		var err error
		if args, err = a.askUpload(); err != nil {
			return err
		}
	}
	if len(args) < 3 {
		printlnFn("Usage: upload <dataset-id> <title> <file>...")
		return nil
	}

	files, err := chunker.DescribeAll(args[2:])
	if err != nil {
		return err
	}

	req := models.UploadRequest{
		Dataset: models.Dataset{ID: args[0], Title: args[1]},
		Files:   files,
	}
	if _, err := a.uploads.Start(ctx, req); err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Uploading %d file(s), %s, to %s", len(files),
		humanize.Bytes(uint64(models.TotalSize(files))), req.Dataset.ID))
	return nil
}

func (a *App) askUpload() ([]string, error) {
	id, err := GetSimpleText(a.reader, "Dataset id", os.Stdout)
	if err != nil {
		return nil, err
	}
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return nil, err
	}
	paths, err := GetPaths(a.reader, "Files", os.Stdout)
	if err != nil {
		return nil, err
	}
	return append([]string{id, title}, paths...), nil
}

// ListTasks prints the active uploads, newest first.
func (a *App) ListTasks(ctx context.Context) error {
	tasks := a.uploads.Tasks()
	if len(tasks) == 0 {
		printlnFn("No active uploads")
		return nil
	}
	for _, t := range tasks {
		printlnFn(formatTask(t))
	}
	return nil
}

func formatTask(t models.UploadTask) string {
	return fmt.Sprintf("%-16s %-24s %-12s %6.2f%%  %s / %s  started %s",
		t.ID, t.Title, t.State, t.Percent,
		humanize.Bytes(uint64(t.BytesLoaded)), humanize.Bytes(uint64(t.BytesTotal)),
		humanize.Time(t.CreatedAt))
}

func (a *App) Cancel(ctx context.Context, args []string) error {
	return a.uploads.Cancel(ctx, args[0])
}

// WaitAll blocks until no upload is running or ctx is done.
func (a *App) WaitAll(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.uploads.Wait()
		close(done)
	}()

	select {
	case <-done:
		printlnFn("All uploads finished")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History prints the most recent journaled uploads. An optional argument
// sets how many.
func (a *App) History(ctx context.Context, args []string) error {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			printlnFn("Usage: history [n]")
			return nil
		}
		limit = n
	}

	runs, err := a.journal.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printlnFn("No uploads recorded")
		return nil
	}
	for _, r := range runs {
		printlnFn(formatRun(r))
	}
	return nil
}

func formatRun(r models.HistoryRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-24s %-10s %s / %s  %d file(s)  %s",
		r.DatasetID, r.Title, r.State,
		humanize.Bytes(uint64(r.BytesSent)), humanize.Bytes(uint64(r.BytesTotal)),
		len(r.Files), humanize.Time(r.StartedAt))
	if r.Error != "" {
		fmt.Fprintf(&b, "  error: %s", r.Error)
	}
	return b.String()
}

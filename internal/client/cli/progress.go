package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"golang.org/x/term"
)

const progressInterval = 300 * time.Millisecond

// progressLine redraws a single status line with the percentage of every
// active upload. It only draws when w is a terminal.
type progressLine struct {
	w          io.Writer
	isTerminal func() bool
	interval   time.Duration

	latest  atomic.Pointer[[]models.UploadTask]
	changed atomic.Bool
	drawn   bool
}

func newProgressLine(w io.Writer, fd int) *progressLine {
	return &progressLine{
		w:          w,
		isTerminal: func() bool { return term.IsTerminal(fd) },
		interval:   progressInterval,
	}
}

// Observe stores the latest task list. Safe to call from any goroutine.
func (p *progressLine) Observe(tasks []models.UploadTask) {
	p.latest.Store(&tasks)
	p.changed.Store(true)
}

// Run redraws on change until ctx is done.
func (p *progressLine) Run(ctx context.Context) {
	if !p.isTerminal() {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.changed.Swap(false) {
				p.draw()
			}
		case <-ctx.Done():
			if p.drawn {
				fmt.Fprint(p.w, "\r\033[K")
			}
			return
		}
	}
}

func (p *progressLine) draw() {
	var tasks []models.UploadTask
	if l := p.latest.Load(); l != nil {
		tasks = *l
	}

	line := formatProgress(tasks)
	if line == "" && !p.drawn {
		return
	}
	fmt.Fprint(p.w, "\r\033[K"+line)
	p.drawn = line != ""
}

func formatProgress(tasks []models.UploadTask) string {
	if len(tasks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, fmt.Sprintf("%s %.2f%%", t.ID, t.Percent))
	}
	return "uploading: " + strings.Join(parts, " | ")
}

package services

import (
	"sync"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
)

// Progress turns bytes transferred into a task percentage.
//
// Acknowledged chunks are added with Advance. While a chunk is in flight
// Observe reports how much of it the transport has consumed; the in-flight
// amount is clamped to the length announced by Begin and dropped on
// Advance. Observations carry the generation Begin returned, so a late
// report for an earlier chunk is ignored. Percent never decreases and
// stays below 100.
type Progress struct {
	mu       sync.Mutex
	gen      uint64
	total    int64
	acked    int64
	chunk    int64
	inflight int64
	percent  float64
}

func NewProgress(total int64) *Progress {
	return &Progress{total: total}
}

// Begin announces a chunk of n bytes about to be sent and returns the
// generation its observations must carry.
func (p *Progress) Begin(n int64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.chunk = n
	p.inflight = 0
	return p.gen
}

// Observe records sent bytes of the chunk started as gen and reports
// whether the percentage went up.
func (p *Progress) Observe(gen uint64, sent int64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return p.percent, false
	}
	p.inflight = max(p.inflight, min(sent, p.chunk))
	before := p.percent
	p.recompute()
	return p.percent, p.percent > before
}

// Advance acknowledges a chunk of n bytes.
func (p *Progress) Advance(n int64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.acked += n
	p.gen++
	p.chunk = 0
	p.inflight = 0
	p.recompute()
	return p.percent
}

func (p *Progress) recompute() {
	if p.total <= 0 {
		return
	}
	pct := min(models.MaxActivePercent, 100*float64(p.acked+p.inflight)/float64(p.total))
	p.percent = max(p.percent, pct)
}

// Percent returns the current percentage.
func (p *Progress) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// Loaded returns acknowledged bytes plus the in-flight bytes of the
// current chunk.
func (p *Progress) Loaded() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acked + p.inflight
}

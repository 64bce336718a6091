package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Tab retirement thresholds. Listing pages are heavy SPA documents, so a
// tab that keeps failing or has rendered many of them is replaced.
const (
	maxErrScore = 3.0
	maxTabUses  = 50
	maxTabAge   = 50 * time.Minute
)

var errPoolClosed = errors.New("tab pool closed")

// tab wraps a pooled browser tab with health tracking.
type tab[T any] struct {
	val      T
	errScore float64
	useCount int
	created  time.Time
}

func (t *tab[T]) record(ok bool) {
	t.useCount++
	if ok {
		t.errScore = math.Max(0, t.errScore-0.5)
	} else {
		t.errScore += 1.0
	}
}

func (t *tab[T]) shouldRetire(now time.Time) bool {
	return t.errScore >= maxErrScore || t.useCount >= maxTabUses || now.Sub(t.created) >= maxTabAge
}

// tabPool lends out at most max tabs, creating them lazily and retiring
// unhealthy ones. Get blocks while all tabs are lent out.
type tabPool[T any] struct {
	max     int
	create  func() (T, error)
	destroy func(T)
	now     func() time.Time

	idle  chan *tab[T]
	slots chan struct{} // one token per live-or-creatable tab

	mu     sync.Mutex
	active int
	closed bool
	done   chan struct{}
}

func newTabPool[T any](max int, create func() (T, error), destroy func(T)) *tabPool[T] {
	if max < 1 {
		max = 1
	}
	p := &tabPool[T]{
		max:     max,
		create:  create,
		destroy: destroy,
		now:     time.Now,
		idle:    make(chan *tab[T], max),
		slots:   make(chan struct{}, max),
		done:    make(chan struct{}),
	}
	for i := 0; i < max; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// Get borrows a tab, creating one if the pool is below its limit.
func (p *tabPool[T]) Get(ctx context.Context) (*tab[T], error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errPoolClosed
	}

	select {
	case t := <-p.idle:
		p.lent(1)
		return t, nil
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, errPoolClosed
	case t := <-p.idle:
		p.lent(1)
		return t, nil
	case <-p.slots:
		val, err := p.create()
		if err != nil {
			p.slots <- struct{}{}
			return nil, err
		}
		p.lent(1)
		return &tab[T]{val: val, created: p.now()}, nil
	}
}

// Put returns a borrowed tab. ok reports whether the fetch it served
// succeeded; tabs that cross a retirement threshold are destroyed.
func (p *tabPool[T]) Put(t *tab[T], ok bool) {
	p.lent(-1)
	t.record(ok)

	p.mu.Lock()
	if !p.closed && !t.shouldRetire(p.now()) {
		// idle has room for every tab, so this never blocks.
		p.idle <- t
		p.mu.Unlock()
		return
	}
	closed := p.closed
	p.mu.Unlock()

	if !closed {
		slog.Debug("retiring browser tab", "err_score", t.errScore, "uses", t.useCount)
	}
	p.destroy(t.val)
	p.slots <- struct{}{}
}

// Active returns the number of tabs currently lent out.
func (p *tabPool[T]) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close destroys idle tabs and makes later Get calls fail. Lent tabs are
// destroyed when they are returned.
func (p *tabPool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	for {
		select {
		case t := <-p.idle:
			p.destroy(t.val)
		default:
			return
		}
	}
}

func (p *tabPool[T]) lent(delta int) {
	p.mu.Lock()
	p.active += delta
	p.mu.Unlock()
}

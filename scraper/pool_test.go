package scraper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTabs struct {
	created   atomic.Int32
	destroyed atomic.Int32
	fail      bool
}

func (f *fakeTabs) pool(max int) *tabPool[int32] {
	return newTabPool(max,
		func() (int32, error) {
			if f.fail {
				return 0, errors.New("target crashed")
			}
			return f.created.Add(1), nil
		},
		func(int32) { f.destroyed.Add(1) },
	)
}

func TestTabPool_ReusesTabs(t *testing.T) {
	f := &fakeTabs{}
	p := f.pool(2)

	a, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Active() != 1 {
		t.Errorf("Active = %d, want 1", p.Active())
	}
	p.Put(a, true)

	b, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.val != a.val {
		t.Errorf("got tab %d, want reused tab %d", b.val, a.val)
	}
	if f.created.Load() != 1 {
		t.Errorf("created %d tabs, want 1", f.created.Load())
	}
	p.Put(b, true)
}

func TestTabPool_BlocksAtLimit(t *testing.T) {
	f := &fakeTabs{}
	p := f.pool(1)

	held, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := p.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get at limit: err = %v, want deadline exceeded", err)
	}

	got := make(chan *tab[int32])
	go func() {
		tb, _ := p.Get(context.Background())
		got <- tb
	}()
	p.Put(held, true)
	select {
	case tb := <-got:
		if tb == nil || tb.val != held.val {
			t.Errorf("waiter got %v, want the returned tab", tb)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Put")
	}
}

func TestTabPool_RetiresUnhealthyTabs(t *testing.T) {
	f := &fakeTabs{}
	p := f.pool(1)

	for i := 0; i < 3; i++ {
		tb, err := p.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		p.Put(tb, false)
	}
	if f.destroyed.Load() != 1 {
		t.Errorf("destroyed %d tabs after 3 failures, want 1", f.destroyed.Load())
	}

	tb, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after retirement: %v", err)
	}
	if f.created.Load() != 2 {
		t.Errorf("created %d tabs, want a fresh one", f.created.Load())
	}
	p.Put(tb, true)
}

func TestTabPool_RetiresOldTabs(t *testing.T) {
	f := &fakeTabs{}
	p := f.pool(1)
	now := time.Now()
	p.now = func() time.Time { return now }

	tb, _ := p.Get(context.Background())
	now = now.Add(maxTabAge)
	p.Put(tb, true)
	if f.destroyed.Load() != 1 {
		t.Errorf("old tab was not retired")
	}
}

func TestTabPool_CreateFailureFreesSlot(t *testing.T) {
	f := &fakeTabs{fail: true}
	p := f.pool(1)

	if _, err := p.Get(context.Background()); err == nil {
		t.Fatal("expected create error")
	}
	f.fail = false
	tb, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after failed create: %v", err)
	}
	p.Put(tb, true)
}

func TestTabPool_Close(t *testing.T) {
	f := &fakeTabs{}
	p := f.pool(2)

	idle, _ := p.Get(context.Background())
	lent, _ := p.Get(context.Background())
	p.Put(idle, true)

	p.Close()
	p.Close()
	if f.destroyed.Load() != 1 {
		t.Errorf("destroyed %d tabs on close, want the idle one", f.destroyed.Load())
	}
	if _, err := p.Get(context.Background()); !errors.Is(err, errPoolClosed) {
		t.Errorf("Get after Close: err = %v", err)
	}
	p.Put(lent, true)
	if f.destroyed.Load() != 2 {
		t.Errorf("tab returned after Close was not destroyed")
	}
}

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"www.google-analytics.com", true},
		{"stats.g.doubleclick.net", true},
		{"a0.muscache.com", false},
		{"www.airbnb.com", false},
	}
	for _, tt := range tests {
		if got := isAdDomain(tt.host); got != tt.want {
			t.Errorf("isAdDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

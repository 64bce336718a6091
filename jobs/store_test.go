package jobs

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/stayscan/models"
)

// storeFactories lists the Store implementations under test. RedisStore
// runs only when STAYSCAN_TEST_REDIS_URL points at a disposable server.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
	}
	if url := os.Getenv("STAYSCAN_TEST_REDIS_URL"); url != "" {
		factories["redis"] = func(t *testing.T) Store {
			rdb, err := OpenRedis(context.Background(), url)
			if err != nil {
				t.Fatalf("OpenRedis: %v", err)
			}
			t.Cleanup(func() { rdb.Close() })
			return NewRedisStore(rdb, "stayscan-test-"+uuid.NewString(), time.Hour)
		}
	}
	return factories
}

func newJob(url string) *models.ScrapeJob {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.ScrapeJob{
		ID:          uuid.NewString(),
		ListingURL:  url,
		Status:      models.JobQueued,
		MaxAttempts: 3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("CreateIfAbsent", func(t *testing.T) { testCreateIfAbsent(t, factory(t)) })
			t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, factory(t)) })
			t.Run("UpdateReleasesIndex", func(t *testing.T) { testUpdateReleasesIndex(t, factory(t)) })
			t.Run("UpdateAbort", func(t *testing.T) { testUpdateAbort(t, factory(t)) })
			t.Run("CopiesOut", func(t *testing.T) { testCopiesOut(t, factory(t)) })
			t.Run("DeleteFinishedBefore", func(t *testing.T) { testDeleteFinishedBefore(t, factory(t)) })
		})
	}
}

func testCreateIfAbsent(t *testing.T, s Store) {
	ctx := context.Background()
	first := newJob("https://www.airbnb.com/rooms/1")
	got, created, err := s.CreateIfAbsent(ctx, first)
	if err != nil || !created || got.ID != first.ID {
		t.Fatalf("first create: got %v created=%v err=%v", got, created, err)
	}

	second := newJob("https://www.airbnb.com/rooms/1")
	got, created, err = s.CreateIfAbsent(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if created || got.ID != first.ID {
		t.Errorf("duplicate create: created=%v id=%s, want existing %s", created, got.ID, first.ID)
	}

	if _, err := s.Get(ctx, second.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("rejected job was stored: err = %v", err)
	}

	active, err := s.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("ListActive = %v", active)
	}
}

func testConcurrentCreate(t *testing.T, s Store) {
	ctx := context.Background()
	const n = 16
	ids := make([]string, n)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, created, err := s.CreateIfAbsent(ctx, newJob("https://www.airbnb.com/rooms/2"))
			if err != nil {
				t.Errorf("CreateIfAbsent: %v", err)
				return
			}
			mu.Lock()
			ids[i] = got.ID
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created %d jobs, want 1", createdCount)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("callers saw different job ids: %v", ids)
		}
	}
}

func testUpdateReleasesIndex(t *testing.T, s Store) {
	ctx := context.Background()
	job := newJob("https://www.airbnb.com/rooms/3")
	if _, _, err := s.CreateIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}

	done, err := s.Update(ctx, job.ID, func(j *models.ScrapeJob) error {
		now := time.Now()
		j.Status = models.JobSucceeded
		j.Attempt = 1
		j.FinishedAt = &now
		j.Result = &models.ExtractionResult{Photos: []string{"https://a0.muscache.com/a.jpg"}}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if done.Status != models.JobSucceeded || done.Result == nil {
		t.Errorf("Update returned %+v", done)
	}

	next := newJob("https://www.airbnb.com/rooms/3")
	got, created, err := s.CreateIfAbsent(ctx, next)
	if err != nil || !created || got.ID != next.ID {
		t.Errorf("create after finish: created=%v err=%v", created, err)
	}

	if _, err := s.Update(ctx, "missing", func(*models.ScrapeJob) error { return nil }); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Update unknown id: err = %v", err)
	}
}

func testUpdateAbort(t *testing.T, s Store) {
	ctx := context.Background()
	job := newJob("https://www.airbnb.com/rooms/4")
	if _, _, err := s.CreateIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}
	abort := errors.New("abort")
	_, err := s.Update(ctx, job.ID, func(j *models.ScrapeJob) error {
		j.Status = models.JobFailed
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("err = %v, want abort", err)
	}
	got, _ := s.Get(ctx, job.ID)
	if got.Status != models.JobQueued {
		t.Errorf("aborted update was written: status = %s", got.Status)
	}
}

func testCopiesOut(t *testing.T, s Store) {
	ctx := context.Background()
	job := newJob("https://www.airbnb.com/rooms/5")
	if _, _, err := s.CreateIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Status = models.JobFailed

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.Status = models.JobSucceeded

	again, _ := s.Get(ctx, job.ID)
	if again.Status != models.JobQueued {
		t.Errorf("stored job changed through a copy: status = %s", again.Status)
	}
}

func testDeleteFinishedBefore(t *testing.T, s Store) {
	ctx := context.Background()
	old := newJob("https://www.airbnb.com/rooms/6")
	fresh := newJob("https://www.airbnb.com/rooms/7")
	live := newJob("https://www.airbnb.com/rooms/8")
	for _, j := range []*models.ScrapeJob{old, fresh, live} {
		if _, _, err := s.CreateIfAbsent(ctx, j); err != nil {
			t.Fatal(err)
		}
	}
	finish := func(id string, at time.Time) {
		if _, err := s.Update(ctx, id, func(j *models.ScrapeJob) error {
			j.Status = models.JobFailed
			j.FinishedAt = &at
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	finish(old.ID, now.Add(-48*time.Hour))
	finish(fresh.ID, now.Add(-time.Minute))

	n, err := s.DeleteFinishedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted %d jobs, want 1", n)
	}
	if _, err := s.Get(ctx, old.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("old job survived: %v", err)
	}
	for _, id := range []string{fresh.ID, live.ID} {
		if _, err := s.Get(ctx, id); err != nil {
			t.Errorf("job %s was removed: %v", id, err)
		}
	}
}

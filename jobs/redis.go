package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/use-agent/stayscan/models"
)

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 16

// RedisStore keeps jobs in Redis as JSON documents so they survive
// restarts and can be shared by several processes.
//
// Keys:
//
//	<prefix>:job:<id>        job document; expires Retention after finishing
//	<prefix>:active:<url>    id of the active job for a listing URL
//	<prefix>:active-jobs     set of active job ids
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// OpenRedis parses url, connects and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a RedisStore. A zero retention keeps finished jobs
// until DeleteFinishedBefore removes them.
func NewRedisStore(rdb *redis.Client, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "stayscan"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, retention: retention}
}

func (s *RedisStore) jobKey(id string) string     { return s.prefix + ":job:" + id }
func (s *RedisStore) activeKey(url string) string { return s.prefix + ":active:" + url }
func (s *RedisStore) activeSetKey() string        { return s.prefix + ":active-jobs" }

// getter is the part of *redis.Client and *redis.Tx that load needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, id string) (*models.ScrapeJob, error) {
	data, err := c.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: load %s: %w", id, err)
	}
	var job models.ScrapeJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobs: decode %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisStore) CreateIfAbsent(ctx context.Context, job *models.ScrapeJob) (*models.ScrapeJob, bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, false, fmt.Errorf("jobs: encode %s: %w", job.ID, err)
	}
	activeKey := s.activeKey(job.ListingURL)

	for i := 0; i < maxTxRetries; i++ {
		var existing *models.ScrapeJob
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			id, err := tx.Get(ctx, activeKey).Result()
			switch {
			case err == nil:
				existing, err = s.load(ctx, tx, id)
				if err == nil && !existing.Status.Terminal() {
					return nil
				}
				// The index points at an expired or finished job.
				existing = nil
				if err != nil && !errors.Is(err, ErrJobNotFound) {
					return err
				}
			case !errors.Is(err, redis.Nil):
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.jobKey(job.ID), data, 0)
				pipe.Set(ctx, activeKey, job.ID, 0)
				pipe.SAdd(ctx, s.activeSetKey(), job.ID)
				return nil
			})
			return err
		}, activeKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("jobs: create %s: %w", job.ID, err)
		}
		if existing != nil {
			return existing, false, nil
		}
		return job.Clone(), true, nil
	}
	return nil, false, fmt.Errorf("jobs: create %s: too much contention", job.ID)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.ScrapeJob, error) {
	return s.load(ctx, s.rdb, id)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*models.ScrapeJob) error) (*models.ScrapeJob, error) {
	key := s.jobKey(id)

	for i := 0; i < maxTxRetries; i++ {
		var updated *models.ScrapeJob
		var fnErr error
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			job, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if fnErr = fn(job); fnErr != nil {
				return fnErr
			}
			data, err := json.Marshal(job)
			if err != nil {
				return fmt.Errorf("jobs: encode %s: %w", id, err)
			}

			terminal := job.Status.Terminal()
			activeKey := s.activeKey(job.ListingURL)
			releaseIndex := false
			if terminal {
				if err := tx.Watch(ctx, activeKey).Err(); err != nil {
					return err
				}
				owner, err := tx.Get(ctx, activeKey).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				releaseIndex = owner == id
			}

			var ttl time.Duration
			if terminal {
				ttl = s.retention
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, ttl)
				if terminal {
					pipe.SRem(ctx, s.activeSetKey(), id)
				}
				if releaseIndex {
					pipe.Del(ctx, activeKey)
				}
				return nil
			})
			updated = job
			return err
		}, key)

		if fnErr != nil {
			return nil, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("jobs: update %s: %w", id, err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("jobs: update %s: too much contention", id)
}

func (s *RedisStore) ListActive(ctx context.Context) ([]*models.ScrapeJob, error) {
	ids, err := s.rdb.SMembers(ctx, s.activeSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("jobs: list active: %w", err)
	}
	out := make([]*models.ScrapeJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.load(ctx, s.rdb, id)
		if errors.Is(err, ErrJobNotFound) {
			s.rdb.SRem(ctx, s.activeSetKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !job.Status.Terminal() {
			out = append(out, job)
		}
	}
	return out, nil
}

// DeleteFinishedBefore scans job documents. With a non-zero retention the
// keys also expire on their own.
func (s *RedisStore) DeleteFinishedBefore(ctx context.Context, t time.Time) (int, error) {
	n := 0
	iter := s.rdb.Scan(ctx, 0, s.prefix+":job:*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var job models.ScrapeJob
		if json.Unmarshal(data, &job) != nil {
			continue
		}
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(t) {
			if err := s.rdb.Del(ctx, key).Err(); err == nil {
				n++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("jobs: sweep: %w", err)
	}
	return n, nil
}

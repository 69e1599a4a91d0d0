// Package redis persists workflow reports in Redis, for deployments where
// the HTTP surface and the CLI share run history.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/probaah/probaah/pkg/domain"
)

// Store implements ports.ReportStore using Redis. Reports are stored as JSON
// under a prefixed key; a ZSET indexes run IDs by save time so Latest and
// List stay cheap.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored reports.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for reports.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "probaah:run:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the report and indexes it by save time.
func (s *Store) Save(ctx context.Context, report *domain.WorkflowReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(report.RunID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: report.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a report by run ID.
func (s *Store) Load(ctx context.Context, runID string) (*domain.WorkflowReport, error) {
	val, err := s.client.Get(ctx, s.key(runID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var report domain.WorkflowReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// Latest returns the most recently saved report. Index entries whose report
// expired are pruned lazily.
func (s *Store) Latest(ctx context.Context) (*domain.WorkflowReport, error) {
	for {
		ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read run index: %w", err)
		}
		if len(ids) == 0 {
			return nil, domain.ErrRunNotFound
		}
		report, err := s.Load(ctx, ids[0])
		if err == domain.ErrRunNotFound {
			// Report expired out from under the index.
			_ = s.client.ZRem(ctx, s.indexKey(), ids[0]).Err()
			continue
		}
		return report, err
	}
}

// Delete removes a report by run ID.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the stored run IDs, newest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	runs, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

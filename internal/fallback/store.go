// Package fallback is the degraded-mode record store the admin dashboard uses
// when the issue store is unreachable.
package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jihoo509/third-site/internal/leads"
	"github.com/jihoo509/third-site/internal/observability/metrics"
	"github.com/jihoo509/third-site/pkg/logging"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnavailable is returned when no Redis backend is reachable.
	ErrUnavailable = errors.New("fallback: store unavailable")

	// ErrNotFound is returned for unknown record ids.
	ErrNotFound = errors.New("fallback: record not found")

	// ErrInvalidRecord is returned when a record carries an unknown type.
	ErrInvalidRecord = errors.New("fallback: invalid record")
)

const defaultKeyPrefix = "consultationData"

// Record is a canonical lead plus local bookkeeping fields.
type Record struct {
	leads.CanonicalRecord

	ID             string `json:"id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	SubmittedAt    string `json:"submitted_at"`
	SubmittedAtKST string `json:"submitted_at_kst"`
}

// canonical returns the record as the filter sees it.
func (r Record) canonical() leads.CanonicalRecord {
	c := r.CanonicalRecord
	c.Kind = r.Type
	if c.RequestedAt == "" {
		c.RequestedAt = r.SubmittedAtKST
	}
	return c
}

// Store keeps records in a Redis hash keyed by id plus a list holding
// insertion order, newest first.
type Store struct {
	redis   *redis.Client
	prefix  string
	tracer  trace.Tracer
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

func WithMetrics(m *metrics.LeadMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store over client. A nil client yields a store that
// reports itself unavailable.
func NewStore(client *redis.Client, prefix string, opts ...Option) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	s := &Store{
		redis:  client,
		prefix: prefix,
		tracer: otel.Tracer("thirdsite.internal.fallback"),
		logger: logging.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) recordsKey() string { return s.prefix + ":records" }
func (s *Store) orderKey() string   { return s.prefix + ":order" }

// Available reports whether the backend answers a ping.
func (s *Store) Available(ctx context.Context) bool {
	if s == nil || s.redis == nil {
		return false
	}
	return s.redis.Ping(ctx).Err() == nil
}

// Insert assigns an id and timestamps and appends rec.
func (s *Store) Insert(ctx context.Context, rec Record) (Record, error) {
	if s == nil || s.redis == nil {
		return Record{}, ErrUnavailable
	}
	rec.Type = strings.ToLower(strings.TrimSpace(rec.Type))
	if rec.Type == "" {
		rec.Type = string(leads.KindPhone)
	}
	if !leads.Kind(rec.Type).Valid() {
		return Record{}, fmt.Errorf("%w: type %q", ErrInvalidRecord, rec.Type)
	}
	if rec.RequestType == "" {
		rec.RequestType = leads.RequestTypeLabel(rec.Type)
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.SubmittedAt = leads.ISOTimestamp(now)
	rec.SubmittedAtKST = leads.ToKoreanDisplayTime(rec.SubmittedAt)

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("fallback: marshal record: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "fallback.insert")
	defer span.End()

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.recordsKey(), rec.ID, data)
	pipe.LPush(ctx, s.orderKey(), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		s.metrics.ObserveFallback("insert", "error")
		return Record{}, fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
	}
	s.metrics.ObserveFallback("insert", "ok")
	return rec, nil
}

// List returns records newest first that pass filter.
func (s *Store) List(ctx context.Context, filter leads.Filter) ([]Record, error) {
	if s == nil || s.redis == nil {
		return nil, ErrUnavailable
	}
	ctx, span := s.tracer.Start(ctx, "fallback.list")
	defer span.End()

	ids, err := s.redis.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		s.metrics.ObserveFallback("list", "error")
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	out := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		s.metrics.ObserveFallback("list", "ok")
		return out, nil
	}

	values, err := s.redis.HMGet(ctx, s.recordsKey(), ids...).Result()
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveFallback("list", "error")
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipping undecodable fallback record", "id", ids[i], "error", err)
			continue
		}
		if filter.Match(rec.canonical()) {
			out = append(out, rec)
		}
	}
	s.metrics.ObserveFallback("list", "ok")
	return out, nil
}

const maxWatchRetries = 5

type decodeError struct {
	id  string
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("fallback: decode record %s: %v", e.id, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

// SetStatus overwrites the free-text status of one record. Concurrent
// updates are last-write-wins.
func (s *Store) SetStatus(ctx context.Context, id, status string) (Record, error) {
	if s == nil || s.redis == nil {
		return Record{}, ErrUnavailable
	}
	ctx, span := s.tracer.Start(ctx, "fallback.set_status")
	defer span.End()

	key := s.recordsKey()
	var rec Record
	update := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		rec = Record{}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return &decodeError{id: id, err: err}
		}
		rec.Status = status
		data, err := json.Marshal(rec)
		if err != nil {
			return &decodeError{id: id, err: err}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, data)
			return nil
		})
		return err
	}

	// A Delete between the read and the write aborts the transaction.
	var err error
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err = s.redis.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	var decErr *decodeError
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return Record{}, ErrNotFound
	case errors.As(err, &decErr):
		return Record{}, decErr
	default:
		span.RecordError(err)
		s.metrics.ObserveFallback("set_status", "error")
		return Record{}, fmt.Errorf("%w: set status: %v", ErrUnavailable, err)
	}
	s.metrics.ObserveFallback("set_status", "ok")
	return rec, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.redis == nil {
		return ErrUnavailable
	}
	pipe := s.redis.TxPipeline()
	removed := pipe.HDel(ctx, s.recordsKey(), id)
	pipe.LRem(ctx, s.orderKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		s.metrics.ObserveFallback("delete", "error")
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	s.metrics.ObserveFallback("delete", "ok")
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.redis == nil {
		return ErrUnavailable
	}
	if err := s.redis.Del(ctx, s.recordsKey(), s.orderKey()).Err(); err != nil {
		s.metrics.ObserveFallback("clear", "error")
		return fmt.Errorf("%w: clear: %v", ErrUnavailable, err)
	}
	s.metrics.ObserveFallback("clear", "ok")
	return nil
}

var demoRecords = []Record{
	{CanonicalRecord: leads.CanonicalRecord{Name: "김민준", Phone: "010-1111-2222"}, Type: "phone"},
	{CanonicalRecord: leads.CanonicalRecord{Name: "이서연", Phone: "010-3333-4444"}, Type: "online"},
}

// SeedDemo inserts the two demo records and returns the full listing.
func (s *Store) SeedDemo(ctx context.Context) ([]Record, error) {
	for _, rec := range demoRecords {
		if _, err := s.Insert(ctx, rec); err != nil {
			return nil, err
		}
	}
	return s.List(ctx, leads.Filter{})
}

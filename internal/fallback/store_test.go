package fallback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jihoo509/third-site/internal/leads"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	client, mr := setupTestRedis(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(client, "test", WithClock(func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}))
	return store, mr
}

func TestInsertAndListNewestFirst(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	first, err := store.Insert(ctx, Record{CanonicalRecord: leads.CanonicalRecord{Name: "홍길동", Phone: "010-1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "phone", first.Type)
	assert.Equal(t, "전화상담", first.RequestType)
	assert.Equal(t, "2024-01-01T01:00:00.000Z", first.SubmittedAt)
	assert.Equal(t, "2024-01-01 10:00:00", first.SubmittedAtKST)

	_, err = store.Insert(ctx, Record{CanonicalRecord: leads.CanonicalRecord{Name: "김철수"}, Type: "online"})
	require.NoError(t, err)

	items, err := store.List(ctx, leads.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "김철수", items[0].Name)
	assert.Equal(t, "홍길동", items[1].Name)

	assert.True(t, mr.Exists("test:records"))
	assert.True(t, mr.Exists("test:order"))
}

func TestInsertRejectsUnknownType(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Insert(context.Background(), Record{Type: "fax"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestListFilters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.SeedDemo(ctx)
	require.NoError(t, err)

	items, err := store.List(ctx, leads.Filter{Kind: leads.KindOnline})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "이서연", items[0].Name)

	items, err = store.List(ctx, leads.Filter{Query: "1111"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "김민준", items[0].Name)

	items, err = store.List(ctx, leads.Filter{From: "2024-01-02"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSetStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	rec, err := store.Insert(ctx, Record{Type: "phone"})
	require.NoError(t, err)

	updated, err := store.SetStatus(ctx, rec.ID, "상담완료")
	require.NoError(t, err)
	assert.Equal(t, "상담완료", updated.Status)

	items, err := store.List(ctx, leads.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "상담완료", items[0].Status)

	_, err = store.SetStatus(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAndClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	a, err := store.Insert(ctx, Record{Type: "phone"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, Record{Type: "online"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, a.ID))
	assert.ErrorIs(t, store.Delete(ctx, a.ID), ErrNotFound)

	items, err := store.List(ctx, leads.Filter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, store.Clear(ctx))
	items, err = store.List(ctx, leads.Filter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNilClientIsUnavailable(t *testing.T) {
	store := NewStore(nil, "")
	ctx := context.Background()

	assert.False(t, store.Available(ctx))
	_, err := store.Insert(ctx, Record{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = store.List(ctx, leads.Filter{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Clear(ctx), ErrUnavailable)
}

func TestBackendDownIsUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	assert.True(t, store.Available(context.Background()))
	mr.Close()

	assert.False(t, store.Available(context.Background()))
	_, err := store.Insert(context.Background(), Record{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestExportCSV(t *testing.T) {
	out := ExportCSV([]Record{
		{CanonicalRecord: leads.CanonicalRecord{Name: "김민준", Phone: "010-1111-2222"}, Type: "phone", SubmittedAtKST: "2024-01-01 09:00:00"},
	})
	assert.Equal(t, "\uFEFF번호,이름,연락처,상담유형,신청일시(KST)\n1,김민준,010-1111-2222,phone,2024-01-01 09:00:00", out)
	assert.Equal(t, "상담신청내역_2024-03-05.csv", ExportFilename(time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)))
}

// deleteOnRead runs del once, right after the first HGET completes.
type deleteOnRead struct {
	once sync.Once
	del  func()
}

func (h *deleteOnRead) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *deleteOnRead) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() == "hget" {
			h.once.Do(h.del)
		}
		return err
	}
}

func (h *deleteOnRead) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestSetStatusRacingDeleteLeavesNoOrphan(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	store := NewStore(client, "test")

	rec, err := store.Insert(ctx, Record{CanonicalRecord: leads.CanonicalRecord{Name: "홍길동"}})
	require.NoError(t, err)

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { other.Close() })
	otherStore := NewStore(other, "test")

	client.AddHook(&deleteOnRead{del: func() {
		require.NoError(t, otherStore.Delete(ctx, rec.ID))
	}})

	_, err = store.SetStatus(ctx, rec.ID, "상담완료")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("test:records"), "status update must not recreate a deleted record")
	assert.False(t, mr.Exists("test:order"))
}

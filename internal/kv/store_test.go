package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/db"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var sqliteSeq atomic.Int64

// backendHarness exposes a backend plus a way to move its clock forward.
type backendHarness struct {
	name    string
	backend Backend
	advance func(time.Duration)
}

func setupMemory(t *testing.T) backendHarness {
	t.Helper()
	var mu sync.Mutex
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	backend := NewMemoryBackend()
	backend.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	return backendHarness{name: "memory", backend: backend, advance: func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}}
}

func setupSQL(t *testing.T) backendHarness {
	t.Helper()
	dsn := fmt.Sprintf("file:kv_store_%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	var mu sync.Mutex
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	backend := NewSQLBackend(conn)
	backend.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backendHarness{name: "sql", backend: backend, advance: func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}}
}

func setupRedis(t *testing.T) backendHarness {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	backend := NewRedisBackendFromClient(client, "test:")
	t.Cleanup(func() { _ = backend.Close() })
	return backendHarness{name: "redis", backend: backend, advance: server.FastForward}
}

func allBackends(t *testing.T) []backendHarness {
	t.Helper()
	return []backendHarness{setupMemory(t), setupSQL(t), setupRedis(t)}
}

func TestStoreRoundTripIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	value := []byte(`{"title":"Grace  Abounding","text":"line one\nline two","tags":["a","b"],"n":1.50}`)
	for _, h := range allBackends(t) {
		store := h.backend.Namespace(NamespaceSermons)
		if errPut := store.Put(ctx, "sermon:2026-05-03", value); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}
		got, errGet := store.Get(ctx, "sermon:2026-05-03")
		if errGet != nil {
			t.Fatalf("%s: get: %v", h.name, errGet)
		}
		if !bytes.Equal(got, value) {
			t.Fatalf("%s: round trip changed bytes: %s", h.name, got)
		}
	}
}

func TestStoreGetMissing(t *testing.T) {
	for _, h := range allBackends(t) {
		if _, errGet := h.backend.Namespace(NamespaceBlog).Get(context.Background(), "post:none"); !errors.Is(errGet, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", h.name, errGet)
		}
	}
}

func TestStoreListByPrefixAndNamespace(t *testing.T) {
	ctx := context.Background()
	for _, h := range allBackends(t) {
		sermons := h.backend.Namespace(NamespaceSermons)
		prayers := h.backend.Namespace(NamespacePrayers)
		for _, key := range []string{"sermon:b", "sermon:a", "lock:sermon:a", "Sermon:c", "sermon_x"} {
			if errPut := sermons.Put(ctx, key, []byte("1")); errPut != nil {
				t.Fatalf("%s: put %s: %v", h.name, key, errPut)
			}
		}
		if errPut := prayers.Put(ctx, "sermon:other", []byte("1")); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}

		keys, errList := sermons.List(ctx, "sermon:")
		if errList != nil {
			t.Fatalf("%s: list: %v", h.name, errList)
		}
		if fmt.Sprint(keys) != "[sermon:a sermon:b]" {
			t.Fatalf("%s: unexpected keys %v", h.name, keys)
		}

		all, errAll := sermons.List(ctx, "")
		if errAll != nil {
			t.Fatalf("%s: list all: %v", h.name, errAll)
		}
		if len(all) != 5 {
			t.Fatalf("%s: expected 5 keys in namespace, got %v", h.name, all)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	for _, h := range allBackends(t) {
		store := h.backend.Namespace(NamespacePrayerLogs)
		if errPut := store.Put(ctx, "log:1", []byte("x")); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}
		if errDelete := store.Delete(ctx, "log:1"); errDelete != nil {
			t.Fatalf("%s: delete: %v", h.name, errDelete)
		}
		if _, errGet := store.Get(ctx, "log:1"); !errors.Is(errGet, ErrNotFound) {
			t.Fatalf("%s: expected deleted key to be gone, got %v", h.name, errGet)
		}
		if errDelete := store.Delete(ctx, "log:1"); errDelete != nil {
			t.Fatalf("%s: deleting absent key: %v", h.name, errDelete)
		}
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	for _, h := range allBackends(t) {
		store := h.backend.Namespace(NamespacePrayers)
		if errPut := store.Put(ctx, "prayer:short", []byte("x"), WithTTL(time.Hour)); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}
		if errPut := store.Put(ctx, "prayer:forever", []byte("y")); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}

		h.advance(30 * time.Minute)
		if _, errGet := store.Get(ctx, "prayer:short"); errGet != nil {
			t.Fatalf("%s: expected key alive before ttl: %v", h.name, errGet)
		}

		h.advance(31 * time.Minute)
		if _, errGet := store.Get(ctx, "prayer:short"); !errors.Is(errGet, ErrNotFound) {
			t.Fatalf("%s: expected expired key, got %v", h.name, errGet)
		}
		keys, errList := store.List(ctx, "prayer:")
		if errList != nil {
			t.Fatalf("%s: list: %v", h.name, errList)
		}
		if fmt.Sprint(keys) != "[prayer:forever]" {
			t.Fatalf("%s: unexpected keys after expiry %v", h.name, keys)
		}
	}
}

func TestStorePutOverwritesAndClearsTTL(t *testing.T) {
	ctx := context.Background()
	for _, h := range allBackends(t) {
		store := h.backend.Namespace(NamespaceBlog)
		if errPut := store.Put(ctx, "rss_xml", []byte("old"), WithTTL(time.Minute)); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}
		if errPut := store.Put(ctx, "rss_xml", []byte("new")); errPut != nil {
			t.Fatalf("%s: put: %v", h.name, errPut)
		}
		h.advance(2 * time.Minute)
		got, errGet := store.Get(ctx, "rss_xml")
		if errGet != nil || string(got) != "new" {
			t.Fatalf("%s: expected overwritten value without ttl, got %q %v", h.name, got, errGet)
		}
	}
}

func TestPutIfAbsentClaimsOnce(t *testing.T) {
	ctx := context.Background()
	for _, h := range allBackends(t) {
		store := h.backend.Namespace(NamespaceSermons)
		if _, ok := store.(Claimer); !ok {
			t.Fatalf("%s: store does not claim atomically", h.name)
		}
		wins := 0
		for i := 0; i < 3; i++ {
			created, errClaim := PutIfAbsent(ctx, store, "lock:sermon:a", []byte(fmt.Sprint(i)), WithTTL(time.Minute))
			if errClaim != nil {
				t.Fatalf("%s: claim: %v", h.name, errClaim)
			}
			if created {
				wins++
			}
		}
		if wins != 1 {
			t.Fatalf("%s: expected exactly one claim, got %d", h.name, wins)
		}
		if got, _ := store.Get(ctx, "lock:sermon:a"); string(got) != "0" {
			t.Fatalf("%s: losing claims overwrote the holder: %q", h.name, got)
		}

		h.advance(2 * time.Minute)
		created, errClaim := PutIfAbsent(ctx, store, "lock:sermon:a", []byte("after"), WithTTL(time.Minute))
		if errClaim != nil || !created {
			t.Fatalf("%s: expected expired lock to be claimable, got %v %v", h.name, created, errClaim)
		}
		got, errGet := store.Get(ctx, "lock:sermon:a")
		if errGet != nil || string(got) != "after" {
			t.Fatalf("%s: unexpected lock value %q %v", h.name, got, errGet)
		}
	}
}

type plainStore struct {
	Store
}

func TestPutIfAbsentFallsBackForPlainStores(t *testing.T) {
	ctx := context.Background()
	store := plainStore{Store: NewMemoryBackend().Namespace(NamespaceBlog)}
	created, errClaim := PutIfAbsent(ctx, store, "lock:rss", []byte("1"))
	if errClaim != nil || !created {
		t.Fatalf("expected first claim to win, got %v %v", created, errClaim)
	}
	created, errClaim = PutIfAbsent(ctx, store, "lock:rss", []byte("2"))
	if errClaim != nil || created {
		t.Fatalf("expected second claim to lose, got %v %v", created, errClaim)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBackend().Namespace(NamespaceBlog)
	type item struct {
		Title string `json:"title"`
	}
	if errPut := PutJSON(ctx, store, "post:1", item{Title: "One"}); errPut != nil {
		t.Fatalf("put json: %v", errPut)
	}
	if errPut := store.Put(ctx, "post:2", []byte("not json")); errPut != nil {
		t.Fatalf("put raw: %v", errPut)
	}
	got, errGet := GetJSON[item](ctx, store, "post:1")
	if errGet != nil || got.Title != "One" {
		t.Fatalf("get json: %+v %v", got, errGet)
	}
	all, errLoad := LoadAll[item](ctx, store, "post:")
	if errLoad != nil {
		t.Fatalf("load all: %v", errLoad)
	}
	if len(all) != 1 || all["post:1"].Title != "One" {
		t.Fatalf("expected undecodable entries skipped, got %+v", all)
	}
}

func TestSweeperDeletesExpiredRows(t *testing.T) {
	ctx := context.Background()
	h := setupSQL(t)
	backend := h.backend.(*SQLBackend)
	store := backend.Namespace(NamespacePrayerLogs)
	for i := 0; i < 3; i++ {
		if errPut := store.Put(ctx, fmt.Sprintf("log:%d", i), []byte("x"), WithTTL(time.Hour)); errPut != nil {
			t.Fatalf("put: %v", errPut)
		}
	}
	if errPut := store.Put(ctx, "log:keep", []byte("x")); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}

	sweeper := NewSweeper(backend, time.Minute)
	if n := sweeper.SweepOnce(ctx); n != 0 {
		t.Fatalf("expected nothing to sweep yet, got %d", n)
	}
	h.advance(2 * time.Hour)
	if n := sweeper.SweepOnce(ctx); n != 3 {
		t.Fatalf("expected 3 swept rows, got %d", n)
	}

	var remaining int64
	if errCount := backend.DB().Table("kv_entries").Count(&remaining).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining row, got %d", remaining)
	}
}

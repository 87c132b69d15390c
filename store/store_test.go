package store_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jacentio/lakitu/store"
)

// --- Test Helpers ---

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// backends returns every in-process Store implementation sharing one clock.
func backends(t *testing.T, clk *clock) map[string]store.Store {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Now = clk.Now

	bs, err := store.NewBadgerStore(store.BadgerOptions{}, cfg)
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })

	return map[string]store.Store{
		"memory": store.NewMemoryStore(cfg),
		"badger": bs,
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store, clk *clock)) {
	for _, name := range []string{"memory", "badger"} {
		t.Run(name, func(t *testing.T) {
			clk := newClock()
			fn(t, backends(t, clk)[name], clk)
		})
	}
}

// --- Unit Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.TableName != "user_items" {
		t.Errorf("expected TableName 'user_items', got %q", cfg.TableName)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("expected Timeout 3s, got %v", cfg.Timeout)
	}
	if !cfg.ConsistentReads {
		t.Error("expected ConsistentReads to default to true")
	}
}

func TestStore_CreateThenGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, clk *clock) {
		ctx := context.Background()

		created, err := s.Create(ctx, "user-1", "  buy milk ")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if created.ItemID == "" {
			t.Fatal("expected generated item id")
		}
		if created.Value != "  buy milk " {
			t.Errorf("expected value stored as given, got %q", created.Value)
		}
		if created.CreatedAt != clk.Now().UnixMilli() || created.UpdatedAt != created.CreatedAt {
			t.Errorf("expected created_at == updated_at == now, got %d/%d", created.CreatedAt, created.UpdatedAt)
		}

		got, err := s.Get(ctx, "user-1", created.ItemID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != created {
			t.Errorf("expected %+v, got %+v", created, got)
		}
	})
}

func TestStore_ListEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		items, err := s.List(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", items)
		}
	})
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, clk *clock) {
		ctx := context.Background()

		var want []string
		for _, v := range []string{"first", "second", "third"} {
			item, err := s.Create(ctx, "user-1", v)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			want = append(want, item.ItemID)
			clk.Advance(time.Millisecond)
		}

		items, err := s.List(ctx, "user-1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != len(want) {
			t.Fatalf("expected %d items, got %d", len(want), len(items))
		}
		for i, id := range want {
			if items[i].ItemID != id {
				t.Errorf("position %d: expected %q, got %q", i, id, items[i].ItemID)
			}
		}
	})
}

func TestStore_ListSameTimestampOrderedByID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			if _, err := s.Create(ctx, "user-1", "same ms"); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		items, err := s.List(ctx, "user-1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		for i := 1; i < len(items); i++ {
			if items[i-1].ItemID >= items[i].ItemID {
				t.Errorf("items not ordered by id: %q before %q", items[i-1].ItemID, items[i].ItemID)
			}
		}
	})
}

func TestStore_OwnerIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		item, err := s.Create(ctx, "alice", "secret")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if _, err := s.Get(ctx, "bob", item.ItemID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound on Get by other owner, got %v", err)
		}
		if _, err := s.Update(ctx, "bob", item.ItemID, "mine now"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound on Update by other owner, got %v", err)
		}
		if err := s.Delete(ctx, "bob", item.ItemID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound on Delete by other owner, got %v", err)
		}

		items, err := s.List(ctx, "bob")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected bob to see no items, got %d", len(items))
		}

		got, err := s.Get(ctx, "alice", item.ItemID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Value != "secret" {
			t.Errorf("expected alice's item unchanged, got %q", got.Value)
		}
	})
}

func TestStore_Update(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, clk *clock) {
		ctx := context.Background()

		item, err := s.Create(ctx, "user-1", "old")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		clk.Advance(5 * time.Millisecond)

		updated, err := s.Update(ctx, "user-1", item.ItemID, "new")
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Value != "new" {
			t.Errorf("expected value 'new', got %q", updated.Value)
		}
		if updated.CreatedAt != item.CreatedAt {
			t.Errorf("expected created_at preserved, got %d want %d", updated.CreatedAt, item.CreatedAt)
		}
		if updated.UpdatedAt != item.CreatedAt+5 {
			t.Errorf("expected updated_at %d, got %d", item.CreatedAt+5, updated.UpdatedAt)
		}

		got, err := s.Get(ctx, "user-1", item.ItemID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != updated {
			t.Errorf("expected persisted %+v, got %+v", updated, got)
		}
	})
}

func TestStore_UpdateClockBehindCreation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, clk *clock) {
		ctx := context.Background()

		item, err := s.Create(ctx, "user-1", "v1")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		clk.Advance(-time.Second)

		updated, err := s.Update(ctx, "user-1", item.ItemID, "v2")
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.UpdatedAt < updated.CreatedAt {
			t.Errorf("updated_at %d is before created_at %d", updated.UpdatedAt, updated.CreatedAt)
		}
	})
}

func TestStore_UpdateMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		_, err := s.Update(context.Background(), "user-1", "does-not-exist", "v")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_DeleteTwice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		item, err := s.Create(ctx, "user-1", "gone soon")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if err := s.Delete(ctx, "user-1", item.ItemID); err != nil {
			t.Fatalf("first Delete failed: %v", err)
		}
		if err := s.Delete(ctx, "user-1", item.ItemID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second Delete, got %v", err)
		}
		if _, err := s.Get(ctx, "user-1", item.ItemID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound after Delete, got %v", err)
		}
	})
}

func TestStore_RejectsInvalidValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"too long", strings.Repeat("x", store.MaxValueLength+1)},
	}

	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		existing, err := s.Create(ctx, "user-1", "keep")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := s.Create(ctx, "user-1", tt.value); !errors.Is(err, store.ErrValidation) {
					t.Errorf("Create: expected ErrValidation, got %v", err)
				}
				if _, err := s.Update(ctx, "user-1", existing.ItemID, tt.value); !errors.Is(err, store.ErrValidation) {
					t.Errorf("Update: expected ErrValidation, got %v", err)
				}
			})
		}

		items, err := s.List(ctx, "user-1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 1 || items[0].Value != "keep" {
			t.Errorf("expected store unchanged, got %+v", items)
		}
	})
}

func TestStore_RejectsEmptyOwner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		if _, err := s.List(ctx, ""); !errors.Is(err, store.ErrValidation) {
			t.Errorf("List: expected ErrValidation, got %v", err)
		}
		if _, err := s.Create(ctx, "", "v"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("Create: expected ErrValidation, got %v", err)
		}
		if _, err := s.Get(ctx, "", "id"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("Get: expected ErrValidation, got %v", err)
		}
	})
}

func TestStore_CanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := s.List(ctx, "user-1"); !errors.Is(err, store.ErrUnavailable) {
			t.Errorf("List: expected ErrUnavailable, got %v", err)
		}
		if _, err := s.Create(ctx, "user-1", "v"); !errors.Is(err, store.ErrUnavailable) {
			t.Errorf("Create: expected ErrUnavailable, got %v", err)
		}
	})
}

func TestBadgerStore_Durable(t *testing.T) {
	dir := t.TempDir()
	cfg := store.DefaultConfig()
	ctx := context.Background()

	s, err := store.NewBadgerStore(store.BadgerOptions{Path: dir}, cfg)
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	item, err := s.Create(ctx, "user-1", "persisted")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.NewBadgerStore(store.BadgerOptions{Path: dir}, cfg)
	if err != nil {
		t.Fatalf("failed to reopen badger store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "user-1", item.ItemID)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Value != "persisted" {
		t.Errorf("expected 'persisted', got %q", got.Value)
	}
}

func TestStore_RejectsNULInKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store, _ *clock) {
		ctx := context.Background()

		victim, err := s.Create(ctx, "a", "secret")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if _, err := s.Create(ctx, "a\x00b", "value"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation for NUL in owner on Create, got %v", err)
		}
		if _, err := s.List(ctx, "a\x00"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation for NUL in owner on List, got %v", err)
		}
		if _, err := s.Get(ctx, "a\x00b", victim.ItemID); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation for NUL in owner on Get, got %v", err)
		}
		if _, err := s.Update(ctx, "a", "x\x00"+victim.ItemID, "pwned"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation for NUL in item id on Update, got %v", err)
		}
		if err := s.Delete(ctx, "a", victim.ItemID+"\x00"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation for NUL in item id on Delete, got %v", err)
		}

		got, err := s.Get(ctx, "a", victim.ItemID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Value != "secret" {
			t.Errorf("expected value untouched, got %q", got.Value)
		}
	})
}

func TestStore_TimeoutIsUnavailable(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.Timeout = time.Nanosecond

	bs, err := store.NewBadgerStore(store.BadgerOptions{}, cfg)
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })

	stores := map[string]store.Store{
		"memory": store.NewMemoryStore(cfg),
		"badger": bs,
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := s.List(context.Background(), "user-1"); !errors.Is(err, store.ErrUnavailable) {
				t.Errorf("expected ErrUnavailable after timeout, got %v", err)
			}
			if _, err := s.Create(context.Background(), "user-1", "milk"); !errors.Is(err, store.ErrUnavailable) {
				t.Errorf("expected ErrUnavailable after timeout, got %v", err)
			}
		})
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	s, err := store.NewBadgerStore(store.BadgerOptions{}, store.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	_ = s.Close()

	if _, err := s.List(context.Background(), "user-1"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on closed db, got %v", err)
	}
}

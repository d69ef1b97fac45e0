package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vendorlens/backend/internal/domain"
)

func newTestMemoryCache(t *testing.T) (*MemoryCache, *time.Time) {
	t.Helper()
	cache := NewMemoryCache(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache, now := newTestMemoryCache(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		value     []byte
		ttl       time.Duration
		advance   time.Duration
		wantFound bool
	}{
		{"fresh entry", "score:rule_based_v1:p-1", []byte(`{"overallScore":86}`), time.Minute, 0, true},
		{"expired entry", "score:rule_based_v1:p-2", []byte(`{}`), time.Minute, 2 * time.Minute, false},
		{"no ttl never expires", "score:rule_based_v1:p-3", []byte(`{}`), 0, 24 * time.Hour, true},
		{"empty value", "empty", []byte{}, time.Minute, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			*now = now.Add(tt.advance)

			got, err := cache.Get(ctx, tt.key)
			if !tt.wantFound {
				if !errors.Is(err, domain.ErrCacheMiss) {
					t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_StoresCopies(t *testing.T) {
	cache, _ := newTestMemoryCache(t)
	ctx := context.Background()

	value := []byte("original")
	_ = cache.Set(ctx, "k", value, time.Minute)
	value[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("cached value changed with caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("cached value changed with returned slice: %q", again)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache, _ := newTestMemoryCache(t)

	_, err := cache.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_DeleteAndExists(t *testing.T) {
	cache, now := newTestMemoryCache(t)
	ctx := context.Background()

	if exists, _ := cache.Exists(ctx, "k"); exists {
		t.Errorf("Exists() = true for a key never set")
	}
	_ = cache.Set(ctx, "k", []byte("v"), time.Minute)
	if exists, _ := cache.Exists(ctx, "k"); !exists {
		t.Errorf("Exists() = false after Set")
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if exists, _ := cache.Exists(ctx, "k"); exists {
		t.Errorf("Exists() = true after Delete")
	}

	_ = cache.Set(ctx, "short", []byte("v"), time.Second)
	*now = now.Add(time.Minute)
	if exists, _ := cache.Exists(ctx, "short"); exists {
		t.Errorf("Exists() = true after expiration")
	}
}

func TestMemoryCache_SweepAndClear(t *testing.T) {
	cache, now := newTestMemoryCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ttl := time.Hour
		if i%2 == 0 {
			ttl = time.Second
		}
		_ = cache.Set(ctx, fmt.Sprintf("k-%d", i), []byte("v"), ttl)
	}
	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5", size)
	}

	*now = now.Add(time.Minute)
	cache.sweep()
	if size := cache.Size(); size != 2 {
		t.Errorf("Size() after sweep = %d, want 2", size)
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() after clear = %d, want 0", size)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id%5)
			if err := cache.Set(ctx, key, []byte{byte(id)}, time.Minute); err != nil {
				t.Errorf("concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("concurrent Get() error = %v", err)
			}
			_, _ = cache.Exists(ctx, fmt.Sprintf("key-%d", (id+1)%5))
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache(0)
	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

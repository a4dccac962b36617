package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskCacheDeduplicatesInFlight(t *testing.T) {
	cache := NewTaskCache(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Do(context.Background(), "r1", "stock", false, func(context.Context) (any, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Give the goroutines time to pile onto the same entry.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("caller %d got %v, want 42", i, v)
		}
	}
}

func TestTaskCacheReusesUntilTTL(t *testing.T) {
	cache := NewTaskCache(30 * time.Millisecond)
	var calls int
	fn := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if v, _ := cache.Do(context.Background(), "r1", "stock", false, fn); v != 1 {
		t.Fatalf("first call got %v", v)
	}
	if v, _ := cache.Do(context.Background(), "r1", "stock", false, fn); v != 1 {
		t.Fatalf("cached call got %v, want reuse", v)
	}

	time.Sleep(40 * time.Millisecond)
	if v, _ := cache.Do(context.Background(), "r1", "stock", false, fn); v != 2 {
		t.Fatalf("post-TTL call got %v, want recompute", v)
	}
}

func TestTaskCacheForceRefresh(t *testing.T) {
	cache := NewTaskCache(time.Minute)
	var calls int
	fn := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	cache.Do(context.Background(), "r1", "stock", false, fn)
	if v, _ := cache.Do(context.Background(), "r1", "stock", true, fn); v != 2 {
		t.Fatalf("forced call got %v, want fresh run", v)
	}
}

func TestTaskCacheEvictIsPerRow(t *testing.T) {
	cache := NewTaskCache(time.Minute)
	var calls int
	fn := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	cache.Do(context.Background(), "r1", "stock", false, fn)
	cache.Do(context.Background(), "r2", "stock", false, fn)

	cache.Evict("r1")

	if v, _ := cache.Do(context.Background(), "r1", "stock", false, fn); v != 3 {
		t.Fatalf("evicted row got %v, want recompute", v)
	}
	if v, _ := cache.Do(context.Background(), "r2", "stock", false, fn); v != 2 {
		t.Fatalf("untouched row got %v, want cached value", v)
	}
}

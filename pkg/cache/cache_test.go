package cache

import (
	"sync"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := NewManager().GetOrCreate("lookups", time.Minute)

	store.Put("telegram/user/42", "record")
	value, ok := store.Get("telegram/user/42")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if value != "record" {
		t.Fatalf("value = %v, want %q", value, "record")
	}
}

func TestMissReturnsNotFound(t *testing.T) {
	store := NewManager().GetOrCreate("lookups", time.Minute)

	if _, ok := store.Get("absent"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	store := NewManager().GetOrCreate("lookups", 50*time.Millisecond)

	store.Put("key", "value")
	if _, ok := store.Get("key"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(70 * time.Millisecond)
	if _, ok := store.Get("key"); ok {
		t.Fatal("expected miss after expiry")
	}
	if store.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after lazy reap", store.Len())
	}
}

func TestPutResetsExpiry(t *testing.T) {
	store := NewManager().GetOrCreate("lookups", 80*time.Millisecond)

	store.Put("key", "old")
	time.Sleep(50 * time.Millisecond)
	store.Put("key", "new")
	time.Sleep(50 * time.Millisecond)

	value, ok := store.Get("key")
	if !ok {
		t.Fatal("expected hit: second Put must reset the expiry window")
	}
	if value != "new" {
		t.Fatalf("value = %v, want %q", value, "new")
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	manager := NewManager()

	first := manager.GetOrCreate("lookups", time.Minute)
	second := manager.GetOrCreate("lookups", time.Hour)
	if first != second {
		t.Fatal("expected the same store for the same name")
	}

	other := manager.GetOrCreate("other", time.Minute)
	if other == first {
		t.Fatal("expected a distinct store for a different name")
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	manager := NewManager()

	const callers = 16
	stores := make([]*Store, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			stores[slot] = manager.GetOrCreate("shared", time.Minute)
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if stores[i] != stores[0] {
			t.Fatal("concurrent GetOrCreate returned different stores")
		}
	}
}

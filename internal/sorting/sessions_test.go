package sorting

import (
	"sync"
	"testing"
)

func TestSessionRegistry_AcquireAndRelease(t *testing.T) {
	r := NewSessionRegistry()
	if holder, ok := r.TryAcquire("42", "A"); !ok || holder != "A" {
		t.Fatalf("expected acquisition, got %q %v", holder, ok)
	}
	if holder, ok := r.TryAcquire("42", "B"); ok || holder != "A" {
		t.Fatalf("expected rejection with holder A, got %q %v", holder, ok)
	}
	if _, ok := r.TryAcquire("43", "B"); !ok {
		t.Fatal("different matches must not block each other")
	}
	r.Release("42")
	if _, held := r.Holder("42"); held {
		t.Fatal("expected 42 released")
	}
	if holder, ok := r.TryAcquire("42", "B"); !ok || holder != "B" {
		t.Fatalf("expected reacquisition by B, got %q %v", holder, ok)
	}
}

func TestSessionRegistry_OnlyOneConcurrentWinner(t *testing.T) {
	r := NewSessionRegistry()
	const contenders = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.TryAcquire("42", "someone"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one session, got %d", r.Len())
	}
}

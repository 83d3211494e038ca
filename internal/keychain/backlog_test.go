package keychain

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func TestBacklogSetAndGet(t *testing.T) {
	b := NewBacklog()

	b.Set("k1", []byte("v1"))

	payload, ok := b.Get("k1")
	if !ok {
		t.Fatal("expected pending entry for k1")
	}
	if !bytes.Equal(payload, []byte("v1")) {
		t.Errorf("expected v1, got %q", payload)
	}
}

func TestBacklogNewerWriteWins(t *testing.T) {
	b := NewBacklog()

	b.Set("k1", []byte("first"))
	b.Set("k1", []byte("second"))

	if b.Len() != 1 {
		t.Fatalf("expected one entry per key, got %d", b.Len())
	}
	payload, _ := b.Get("k1")
	if !bytes.Equal(payload, []byte("second")) {
		t.Errorf("expected second, got %q", payload)
	}
}

func TestBacklogRemove(t *testing.T) {
	b := NewBacklog()

	b.Set("k1", []byte("v1"))
	b.Remove("k1")

	if _, ok := b.Get("k1"); ok {
		t.Error("expected entry removed")
	}
	if !b.Empty() {
		t.Error("expected empty backlog")
	}

	// Removing a missing key is a no-op.
	b.Remove("k1")
}

func TestBacklogSnapshotIsStable(t *testing.T) {
	b := NewBacklog()
	b.Set("b", []byte("2"))
	b.Set("a", []byte("1"))
	b.Set("c", []byte("3"))

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].Key != want {
			t.Errorf("entry %d: expected key %q, got %q", i, want, snap[i].Key)
		}
	}

	// Mutating the backlog must not affect an already-taken snapshot.
	b.Set("a", []byte("changed"))
	b.Remove("b")
	if !bytes.Equal(snap[0].Payload, []byte("1")) {
		t.Errorf("snapshot observed mutation: %q", snap[0].Payload)
	}
}

func TestBacklogGetReturnsCopy(t *testing.T) {
	b := NewBacklog()
	b.Set("k", []byte("orig"))

	payload, _ := b.Get("k")
	payload[0] = 'X'

	again, _ := b.Get("k")
	if !bytes.Equal(again, []byte("orig")) {
		t.Errorf("caller mutation leaked into backlog: %q", again)
	}
}

func TestBacklogConcurrentAccess(t *testing.T) {
	b := NewBacklog()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		key := fmt.Sprintf("key-%d", i%10)
		go func() {
			defer wg.Done()
			b.Set(key, []byte("value"))
		}()
		go func() {
			defer wg.Done()
			b.Get(key)
			b.Snapshot()
		}()
		go func() {
			defer wg.Done()
			b.Remove(key)
		}()
	}
	wg.Wait()
}

package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreBasic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); err == nil {
		t.Fatal("expected not-found error for missing key")
	}

	if err := s.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("Get = %q, want %q", got, "v1")
	}

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); err == nil {
		t.Fatal("expected not-found error after delete")
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Set(ctx, "short", []byte("v"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Get(ctx, "short"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := s.Get(ctx, "short"); err == nil {
		t.Fatal("expected not-found error after expiry")
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	kvs := map[string][]byte{
		"b:1": []byte("one"),
		"b:2": []byte("two"),
		"c:1": []byte("three"),
	}
	if err := s.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet failed: %v", err)
	}

	got, err := s.BatchGet(ctx, []string{"b:1", "b:2", "missing"})
	if err != nil {
		t.Fatalf("BatchGet failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BatchGet returned %d entries, want 2", len(got))
	}
	if string(got["b:1"]) != "one" || string(got["b:2"]) != "two" {
		t.Fatalf("BatchGet values mismatch: %v", got)
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for _, k := range []string{"p:b", "p:a", "q:c"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := s.Keys(ctx, "p:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p:a" || keys[1] != "p:b" {
		t.Fatalf("Keys = %v, want [p:a p:b]", keys)
	}
}

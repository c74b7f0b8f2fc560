package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, found, err := m.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get missing: found=%v err=%v", found, err)
	}

	if err := m.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := m.Get(ctx, "a")
	if err != nil || !found || val != "1" {
		t.Fatalf("Get: val=%q found=%v err=%v", val, found, err)
	}

	if err := m.Del(ctx, "a", "never-existed"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, found, _ := m.Get(ctx, "a"); found {
		t.Fatal("Get after Del: still found")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	m.SetClock(func() time.Time { return now })

	if err := m.Set(ctx, "s", "v", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found, _ := m.Get(ctx, "s"); !found {
		t.Fatal("expected key before expiry")
	}

	now = now.Add(2 * time.Hour)
	if _, found, _ := m.Get(ctx, "s"); found {
		t.Fatal("expected key gone after expiry")
	}
	if m.Len() != 0 {
		t.Fatalf("Len after expiry: %d", m.Len())
	}
}

func TestJSONHelpers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := SetJSON(ctx, m, "doc", doc{Name: "x", Count: 3}, 0); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got doc
	found, err := GetJSON(ctx, m, "doc", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}
	if got.Name != "x" || got.Count != 3 {
		t.Fatalf("GetJSON: %+v", got)
	}

	// Corrupt payloads read as not-found rather than erroring.
	_ = m.Set(ctx, "bad", "{not json", 0)
	found, err = GetJSON(ctx, m, "bad", &got)
	if err != nil || found {
		t.Fatalf("GetJSON corrupt: found=%v err=%v", found, err)
	}
}

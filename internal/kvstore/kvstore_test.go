package kvstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	value := []byte(`["a"]`)
	if err := s.Set(ctx, "k", value); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if string(got) != `["a"]` {
		t.Errorf("Expected stored copy to be unchanged, got %s", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := SetJSON(ctx, s, "ids", []string{"c1", "c2"}); err != nil {
		t.Fatalf("Failed to set JSON: %v", err)
	}

	var ids []string
	if err := GetJSON(ctx, s, "ids", &ids); err != nil {
		t.Fatalf("Failed to get JSON: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("Unexpected ids: %v", ids)
	}

	s.Set(ctx, "broken", []byte("{not json"))
	if err := GetJSON(ctx, s, "broken", &ids); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected decode error, got %v", err)
	}
}

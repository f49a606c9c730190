package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"card-offer-finder/internal/kvstore"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_SetGetOverwrite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.Get(ctx, "hulisi_selected_cards"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := db.Set(ctx, "hulisi_selected_cards", []byte(`["c1"]`)); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	if err := db.Set(ctx, "hulisi_selected_cards", []byte(`["c1","c2"]`)); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}

	got, err := db.Get(ctx, "hulisi_selected_cards")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if string(got) != `["c1","c2"]` {
		t.Errorf("Expected latest value, got %s", got)
	}
}

func TestDB_DeleteAndKeys(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.Set(ctx, "a", []byte("1"))
	db.Set(ctx, "b", []byte("2"))

	keys, err := db.Keys(ctx)
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Unexpected keys: %v", keys)
	}

	if err := db.Delete(ctx, "a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := db.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("Deleting a missing key should not fail: %v", err)
	}
	if _, err := db.Get(ctx, "a"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := kvstore.SetJSON(ctx, db, "ids", []string{"c1"}); err != nil {
		t.Fatalf("Failed to set JSON: %v", err)
	}
	db.Close()

	db, err = NewDB(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	var ids []string
	if err := kvstore.GetJSON(ctx, db, "ids", &ids); err != nil {
		t.Fatalf("Failed to read JSON: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("Unexpected ids after reopen: %v", ids)
	}
}

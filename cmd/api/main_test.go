package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"card-offer-finder/internal/config"
	"card-offer-finder/internal/database"
	"card-offer-finder/internal/kvstore"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, config.StoreConfig{Backend: config.StoreMemory})
	if err != nil {
		t.Fatalf("Failed to open memory store: %v", err)
	}
	closeStore()
	if _, ok := store.(*kvstore.MemoryStore); !ok {
		t.Errorf("Expected *kvstore.MemoryStore, got %T", store)
	}

	store, closeStore, err = openStore(ctx, config.StoreConfig{
		Backend: config.StoreSQLite,
		Path:    filepath.Join(t.TempDir(), "kv.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*database.DB); !ok {
		t.Errorf("Expected *database.DB, got %T", store)
	}

	if _, _, err := openStore(ctx, config.StoreConfig{Backend: "etcd"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info message to be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("Expected JSON output with message, got %q", out)
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf).Info("fallback")
	if !strings.Contains(buf.String(), "msg=fallback") {
		t.Errorf("Expected text output at info level, got %q", buf.String())
	}
}

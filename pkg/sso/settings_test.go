package sso

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMergeStaticWins(t *testing.T) {
	static := Settings{
		Issuer:       "https://pinned.example.com",
		SecretActive: "pinned-secret",
		RateLimitMax: 10,
	}
	stored := Settings{
		Enabled:      true,
		Issuer:       "https://stored.example.com",
		Audience:     "blog.example.com",
		SecretActive: "stored-secret",
		RateLimitMax: 3,
	}

	got := Merge(static, stored)
	if got.Issuer != "https://pinned.example.com" {
		t.Errorf("Expected static issuer to win, got %q", got.Issuer)
	}
	if got.SecretActive != "pinned-secret" {
		t.Errorf("Expected static secret to win, got %q", got.SecretActive)
	}
	if got.RateLimitMax != 10 {
		t.Errorf("Expected static rate limit to win, got %d", got.RateLimitMax)
	}
	if got.Audience != "blog.example.com" {
		t.Errorf("Expected stored audience to survive, got %q", got.Audience)
	}
	if !got.Enabled {
		t.Error("Expected stored enabled flag to survive")
	}
}

func TestMergeBooleans(t *testing.T) {
	got := Merge(Settings{RequireManage: true}, Settings{RequireRedemption: true})
	if !got.RequireManage {
		t.Error("Expected static true boolean to apply")
	}
	if !got.RequireRedemption {
		t.Error("Expected stored true boolean to survive")
	}
}

func TestResolverWithoutStore(t *testing.T) {
	static := Settings{Enabled: true, SecretActive: "s"}
	r := NewSettingsResolver(static, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !got.Enabled || got.SecretActive != "s" {
		t.Error("Expected static settings to pass through")
	}
	if got.RateLimitMax != defaultRateLimitMax {
		t.Error("Expected resolver output to be normalized")
	}
}

func writeSettingsFile(t *testing.T, path string, s storedSettings) {
	t.Helper()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Failed to marshal settings: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}
}

func TestFileSettingsStoreLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettingsFile(t, path, storedSettings{
		Enabled:              true,
		Audience:             "blog.example.com",
		AllowedRedirectPaths: "/wp-admin/\n/dashboard",
	})

	store, err := NewFileSettingsStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewFileSettingsStore failed: %v", err)
	}
	defer store.Close()

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Enabled {
		t.Error("Expected enabled settings")
	}
	if len(got.AllowedRedirectPaths) != 2 {
		t.Errorf("Expected two redirect paths, got %v", got.AllowedRedirectPaths)
	}
}

func TestFileSettingsStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettingsFile(t, path, storedSettings{Audience: "old.example.com"})

	store, err := NewFileSettingsStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewFileSettingsStore failed: %v", err)
	}
	defer store.Close()

	writeSettingsFile(t, path, storedSettings{Audience: "new.example.com"})

	deadline := time.After(5 * time.Second)
	for {
		got, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Audience == "new.example.com" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Settings were not reloaded, audience still %q", got.Audience)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestFileSettingsStoreKeepsLastGoodOnBadEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettingsFile(t, path, storedSettings{Audience: "good.example.com"})

	store, err := NewFileSettingsStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewFileSettingsStore failed: %v", err)
	}
	defer store.Close()

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write broken settings: %v", err)
	}

	// Give the watcher a moment to see the bad write.
	time.Sleep(200 * time.Millisecond)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Audience != "good.example.com" {
		t.Errorf("Expected last good settings to survive a broken edit, got %q", got.Audience)
	}
}

func TestFileSettingsStoreMissingFile(t *testing.T) {
	_, err := NewFileSettingsStore(filepath.Join(t.TempDir(), "missing.json"), testLogger())
	if err == nil {
		t.Fatal("Expected an error for a missing settings file")
	}
}

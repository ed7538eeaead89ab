package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// setupClientTest creates a miniredis instance and returns the client and a
// cleanup function.
func setupClientTest(t *testing.T) (*Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	config := Config{
		URL:        "redis://" + mr.Addr(),
		DB:         0,
		MaxRetries: 3,
		PoolSize:   10,
	}

	client, err := New(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache client: %v", err)
	}

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: "invalid://url"})
	if err == nil {
		t.Fatal("Expected error for invalid Redis URL")
	}
}

func TestNew_ConnectionFailure(t *testing.T) {
	_, err := New(Config{URL: "redis://localhost:9999"})
	if err == nil {
		t.Fatal("Expected connection error")
	}
}

func TestClient_SetNX(t *testing.T) {
	client, _, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	ok, err := client.SetNX(ctx, "nonce:abc", 1, time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("Expected first SetNX to succeed")
	}

	ok, err = client.SetNX(ctx, "nonce:abc", 1, time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Error("Expected second SetNX to fail")
	}
}

func TestClient_SetNX_TTLExpiry(t *testing.T) {
	client, mr, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := client.SetNX(ctx, "nonce:ttl", 1, time.Second); err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	ok, err := client.SetNX(ctx, "nonce:ttl", 1, time.Second)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("Expected SetNX to succeed after TTL expiry")
	}
}

func TestClient_Exists(t *testing.T) {
	client, mr, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	present, err := client.Exists(ctx, "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if present {
		t.Error("Expected missing key to not exist")
	}

	mr.Set("present", "1")

	present, err = client.Exists(ctx, "present")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !present {
		t.Error("Expected key to exist")
	}
}

func TestClient_IncrWithTTL(t *testing.T) {
	client, mr, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "counter", time.Minute)
		if err != nil {
			t.Fatalf("IncrWithTTL failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected counter %d, got %d", want, got)
		}
	}

	ttl, err := client.TTL(ctx, "counter")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL in (0, 1m], got %v", ttl)
	}

	// Every increment resets the window.
	mr.FastForward(30 * time.Second)
	if _, err := client.IncrWithTTL(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("IncrWithTTL failed: %v", err)
	}
	ttl, _ = client.TTL(ctx, "counter")
	if ttl < 50*time.Second {
		t.Errorf("Expected TTL to be reset to the full window, got %v", ttl)
	}
}

func TestClient_GetInt(t *testing.T) {
	client, mr, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	val, err := client.GetInt(ctx, "missing")
	if err != nil {
		t.Fatalf("GetInt failed: %v", err)
	}
	if val != 0 {
		t.Errorf("Expected 0 for missing key, got %d", val)
	}

	mr.Set("count", "7")
	val, err = client.GetInt(ctx, "count")
	if err != nil {
		t.Fatalf("GetInt failed: %v", err)
	}
	if val != 7 {
		t.Errorf("Expected 7, got %d", val)
	}
}

func TestClient_SetGetDel(t *testing.T) {
	client, _, cleanup := setupClientTest(t)
	defer cleanup()

	ctx := context.Background()

	if err := client.Set(ctx, "session:1", "payload", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := client.Get(ctx, "session:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "payload" {
		t.Errorf("Expected payload, got %q", val)
	}

	if err := client.Del(ctx, "session:1"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	_, err = client.Get(ctx, "session:1")
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error after delete, got %v", err)
	}
}

func TestClient_Ping(t *testing.T) {
	client, _, cleanup := setupClientTest(t)
	defer cleanup()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

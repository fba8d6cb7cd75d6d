package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shareguard/shareguard/pkg/controlplane/store"
)

// testSetup creates a control plane store and router deps for testing.
func testSetup(t *testing.T) (store.Store, RouterDeps) {
	t.Helper()

	dbConfig := store.Config{Type: store.DatabaseTypeSQLite, DSN: ":memory:"}
	cpStore, err := store.New(&dbConfig)
	if err != nil {
		t.Fatalf("Failed to create control plane store: %v", err)
	}
	t.Cleanup(func() { _ = cpStore.Close() })

	return cpStore, RouterDeps{Store: cpStore}
}

func TestAPIServer_Lifecycle(t *testing.T) {
	cpStore, deps := testSetup(t)
	_ = cpStore

	cfg := Config{ListenAddr: "127.0.0.1:18080", ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, IdleTimeout: 10 * time.Second}

	server, err := NewServer(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", cfg.ListenAddr))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected nil on graceful shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shutdown in time")
	}
}

func TestAPIServer_DefaultConfig(t *testing.T) {
	_, deps := testSetup(t)

	server, err := NewServer(context.Background(), Config{}, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if server.Addr() != ":8080" {
		t.Errorf("Expected default addr ':8080', got %q", server.Addr())
	}
}

func TestAPIServer_RootRedirectsToHealth(t *testing.T) {
	_, deps := testSetup(t)
	cfg := Config{ListenAddr: "127.0.0.1:18082"}

	server, err := NewServer(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = server.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(fmt.Sprintf("http://%s/", cfg.ListenAddr))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location != "/health" {
		t.Errorf("Expected redirect to '/health', got '%s'", location)
	}
}

func TestAPIServer_StoresEndpoint(t *testing.T) {
	_, deps := testSetup(t)
	cfg := Config{ListenAddr: "127.0.0.1:18083"}

	server, err := NewServer(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = server.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// A fresh in-memory SQLite store is reachable, so /health/stores should
	// report healthy here -- unlike the teacher's "no runtime" case, there
	// is no separate runtime dependency to be absent.
	resp, err := http.Get(fmt.Sprintf("http://%s/health/stores", cfg.ListenAddr))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var response struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response.Status)
	}
}

func TestAPIServer_AuthDisabledByDefault(t *testing.T) {
	_, deps := testSetup(t)

	server, err := NewServer(context.Background(), Config{}, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if server == nil {
		t.Fatal("expected a non-nil server")
	}
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/session"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/viewport"
	"github.com/B2Gdevs/magicborn-opensource-sub000/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	expectedAppName := "Map Editor Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}
	if *host == "" {
		t.Error("Host should have a default value")
	}
	if *dataDir == "" {
		t.Error("Data directory should have a default value")
	}
	if *presetDir == "" {
		t.Error("Preset directory should have a default value")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("MAP_EDITOR_TEST_DIR", "/srv/maps")
	if got := envOr("MAP_EDITOR_TEST_DIR", "data"); got != "/srv/maps" {
		t.Errorf("Expected env value, got %s", got)
	}
	if got := envOr("MAP_EDITOR_TEST_UNSET", "data"); got != "data" {
		t.Errorf("Expected default, got %s", got)
	}
}

func withDirs(t *testing.T, data, presets string) {
	t.Helper()
	originalData, originalPresets := *dataDir, *presetDir
	*dataDir, *presetDir = data, presets
	t.Cleanup(func() { *dataDir, *presetDir = originalData, originalPresets })
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("presets"); os.IsNotExist(err) {
		t.Skip("Skipping test - presets directory not found")
	}
	withDirs(t, t.TempDir(), "presets")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	editorService, err := initializeServices(ctx)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer editorService.Close()

	maps, err := editorService.ListMaps(ctx)
	if err != nil {
		t.Fatalf("ListMaps failed: %v", err)
	}
	if len(maps) != 0 {
		t.Errorf("Expected no maps in a fresh data directory, got %d", len(maps))
	}
}

func TestInitializeServices_InvalidPresetDir(t *testing.T) {
	withDirs(t, t.TempDir(), filepath.Join(t.TempDir(), "missing"))

	if _, err := initializeServices(context.Background()); err == nil {
		t.Error("Expected error for non-existent preset directory")
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	manager := session.NewManager()
	cfg := coords.Config{ImageWidth: 100, ImageHeight: 100, UnrealWidth: 100, UnrealHeight: 100, BaseCellSize: 10, ZoneSize: 2}
	ctrl, err := controller.New("m1", cfg, viewport.Size{Width: 100, Height: 100}, nil)
	if err != nil {
		t.Fatalf("controller.New failed: %v", err)
	}
	s, err := manager.Create("stale1", ctrl)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Touch(time.Now().Add(-2 * sessionMaxAge))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, manager, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for manager.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if manager.Count() != 0 {
		t.Error("Expected stale session to be cleaned up")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Cleanup routine did not stop after cancel")
	}
}

func TestNgrokSettings(t *testing.T) {
	original := *ngrokAuth
	defer func() { *ngrokAuth = original }()

	*ngrokAuth = ""
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "underscore")
	if got := ngrokAuthToken(); got != "underscore" {
		t.Errorf("Expected NGROK_AUTH_TOKEN fallback, got %q", got)
	}

	*ngrokAuth = "flag"
	if got := ngrokAuthToken(); got != "flag" {
		t.Errorf("Expected flag to win, got %q", got)
	}

	t.Setenv("NGROK_ENABLED", "1")
	if !ngrokRequested() {
		t.Error("Expected NGROK_ENABLED=1 to enable the tunnel")
	}
}

func TestRouterMCPEndpoint(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router := newRouter(api, mcp.NewClient("http://localhost:8080"))

	req := httptest.NewRequest("GET", "/mcp", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", rr.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req = httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Map Editor") {
		t.Errorf("Expected server info in response, got %s", rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/maps", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Errorf("Expected API handler at root, got %d", rr.Code)
	}
}

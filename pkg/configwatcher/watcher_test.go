package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz_engine_backend/internal/config"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(level string) {
		body := "jwt:\n  secret: x\nlog:\n  level: " + level + "\nstorage:\n  local_path: " + filepath.Join(dir, "uploads") + "\n"
		if err := os.WriteFile(file, []byte(body), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("info")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// Give the watcher time to register before the write.
	time.Sleep(200 * time.Millisecond)
	write("warn")

	select {
	case cfg := <-reloaded:
		if cfg.Log.Level != "warn" {
			t.Errorf("reloaded level = %q, want warn", cfg.Log.Level)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), func(*config.Config) {})
	if err == nil {
		t.Error("Watch succeeded on a missing directory")
	}
}

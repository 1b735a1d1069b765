package watchdog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSemaphorePathUsesHomeWithFallback(t *testing.T) {
	t.Setenv("HOME", "/home/someone")
	if got := SemaphorePath(); got != "/home/someone/.temperatureTooHigh" {
		t.Fatalf("unexpected path: %q", got)
	}

	t.Setenv("HOME", "")
	if got := SemaphorePath(); got != DefaultSemaphoreFile {
		t.Fatalf("expected fallback path, got %q", got)
	}
}

func TestWatchdogFileExistsTracksSemaphore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".temperatureTooHigh")

	var mu sync.Mutex
	var events []bool
	w := &Watchdog{
		path: path,
		onChange: func(tooHigh bool) {
			mu.Lock()
			events = append(events, tooHigh)
			mu.Unlock()
		},
		log: zerolog.Nop(),
	}

	last := w.fileExists()
	if last {
		t.Fatal("expected no semaphore file initially")
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write semaphore: %v", err)
	}
	current := w.fileExists()
	if !current {
		t.Fatal("expected semaphore file to be detected")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove semaphore: %v", err)
	}
	if w.fileExists() {
		t.Fatal("expected semaphore file to be gone")
	}
}

func TestWatchdogStartStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".temperatureTooHigh")

	w := New(path, func(bool) {}, zerolog.Nop())
	w.Start()
	time.Sleep(10 * time.Millisecond)
	w.Stop()
}

package encoder

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewH264FailsCleanlyWithoutDevice(t *testing.T) {
	_, err := NewH264("/dev/octowatch-test-h264-does-not-exist", zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error opening a nonexistent device")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Fatalf("expected an open error, got: %v", err)
	}
}

func TestNewJPEGFailsCleanlyWithoutDevice(t *testing.T) {
	_, err := NewJPEG("/dev/octowatch-test-jpeg-does-not-exist", 0, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error opening a nonexistent device")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Fatalf("expected an open error, got: %v", err)
	}
}

func TestNewJPEGToleratesOutOfRangeQuality(t *testing.T) {
	// The out-of-range quality is replaced by DefaultJPEGQuality before the
	// device open attempt fails, so this only verifies NewJPEG doesn't panic
	// on out-of-range input and still reports the open error; the substituted
	// value itself is not observed here.
	_, err := NewJPEG("/dev/octowatch-test-jpeg-does-not-exist", 500, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error opening a nonexistent device")
	}
}

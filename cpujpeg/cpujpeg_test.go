package cpujpeg

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

func TestNewFallsBackToDefaultQualityOutOfRange(t *testing.T) {
	e := New(0, zerolog.Nop())
	if e.quality != DefaultQuality {
		t.Fatalf("expected default quality %d, got %d", DefaultQuality, e.quality)
	}
	e = New(500, zerolog.Nop())
	if e.quality != DefaultQuality {
		t.Fatalf("expected default quality %d, got %d", DefaultQuality, e.quality)
	}
	e = New(42, zerolog.Nop())
	if e.quality != 42 {
		t.Fatalf("expected quality 42, got %d", e.quality)
	}
}

func TestPlanarYUV420ToImageRejectsShortFrames(t *testing.T) {
	_, err := planarYUV420ToImage(make([]byte, 10), 800, 600, 800)
	if err == nil {
		t.Fatal("expected error for undersized frame")
	}
}

func TestEncodeProducesValidJPEG(t *testing.T) {
	width, height, stride := int(camera.LowConfig.Width), int(camera.LowConfig.Height), int(camera.LowConfig.Stride)
	frameSize := stride*height + 2*((stride+1)/2)*((height+1)/2)

	fd, err := unix.MemfdCreate("octowatch-test-frame", 0)
	if err != nil {
		t.Fatalf("memfd_create: %v", err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(frameSize)); err != nil {
		t.Fatalf("ftruncate: %v", err)
	}

	mapped, err := unix.Mmap(fd, 0, frameSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	for i := range mapped {
		mapped[i] = byte(i % 200)
	}
	unix.Munmap(mapped)

	var delivered encoder.Payload
	e := New(90, zerolog.Nop())
	e.SetOutputReadyCallback(func(p encoder.Payload) { delivered = p })

	buf := camera.FrameBuffer{FD: uintptr(fd), Length: uint32(frameSize)}
	if err := e.Encode(buf, 12345); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if len(delivered.Data) == 0 {
		t.Fatal("expected non-empty encoded payload")
	}
	if delivered.TimestampMicros != 12345 {
		t.Fatalf("expected timestamp 12345, got %d", delivered.TimestampMicros)
	}
	if !delivered.Keyframe {
		t.Fatal("expected every still to be reported as a keyframe")
	}

	if _, err := jpeg.Decode(bytes.NewReader(delivered.Data)); err != nil {
		t.Fatalf("expected a decodable JPEG, got error: %v", err)
	}
}

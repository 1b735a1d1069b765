package camera

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera/cameratest"
	"github.com/octowatch/videoservice/dmaheap"
	"github.com/octowatch/videoservice/v4l2"
)

type fakeAllocator struct {
	mu    sync.Mutex
	count int
}

func (a *fakeAllocator) Alloc(name string, sizeBytes uint32) (dmaheap.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return dmaheap.Buffer{FD: uintptr(100 + a.count), Length: sizeBytes, Name: name}, nil
}

func TestInitializeRejectsMultipleCameras(t *testing.T) {
	fw := cameratest.New()
	fw.CameraCount = 2
	p := New(fw, &fakeAllocator{}, zerolog.Nop())

	if err := p.Initialize(); err == nil {
		t.Fatal("expected error for non-single camera count")
	}
}

func TestInitializeBuildsRequestPoolWithSixBuffers(t *testing.T) {
	fw := cameratest.New()
	alloc := &fakeAllocator{}
	p := New(fw, alloc, zerolog.Nop())

	if err := p.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alloc.count != RequestCount*2 {
		t.Fatalf("expected %d buffer allocations, got %d", RequestCount*2, alloc.count)
	}
	for i, req := range p.requests {
		if req.Buffers[TierHigh].FD == 0 || req.Buffers[TierLow].FD == 0 {
			t.Fatalf("request %d missing a tier buffer", i)
		}
	}
}

func TestStartEnqueuesAllRequests(t *testing.T) {
	fw := cameratest.New()
	p := New(fw, &fakeAllocator{}, zerolog.Nop())
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := p.Start(func(high, low FrameBuffer, ts int64) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.pendingCount != RequestCount {
		t.Fatalf("expected %d pending requests after start, got %d", RequestCount, p.pendingCount)
	}
}

func TestCompletionDeliversAndReenqueues(t *testing.T) {
	fw := cameratest.New()
	p := New(fw, &fakeAllocator{}, zerolog.Nop())
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	var delivered int64 = -1
	if err := p.Start(func(high, low FrameBuffer, ts int64) {
		delivered = ts
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	fw.CompleteFirst(StatusComplete, 2_000_000, 0)

	if delivered != 2000 {
		t.Fatalf("expected delivered timestamp 2000us, got %d", delivered)
	}
	// completion decremented, re-enqueue incremented: net unchanged.
	if p.pendingCount != RequestCount {
		t.Fatalf("expected pending count restored to %d after reenqueue, got %d", RequestCount, p.pendingCount)
	}
}

func TestCompletionFallsBackToBufferTimestamp(t *testing.T) {
	fw := cameratest.New()
	p := New(fw, &fakeAllocator{}, zerolog.Nop())
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	var delivered int64
	if err := p.Start(func(high, low FrameBuffer, ts int64) { delivered = ts }); err != nil {
		t.Fatalf("start: %v", err)
	}

	fw.CompleteFirst(StatusComplete, 0, 5_000_000)

	if delivered != 5000 {
		t.Fatalf("expected fallback timestamp 5000us, got %d", delivered)
	}
}

func TestCompletionDropsNonCompleteStatus(t *testing.T) {
	fw := cameratest.New()
	p := New(fw, &fakeAllocator{}, zerolog.Nop())
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	called := false
	if err := p.Start(func(high, low FrameBuffer, ts int64) { called = true }); err != nil {
		t.Fatalf("start: %v", err)
	}

	fw.CompleteFirst(StatusCancelled, 1, 1)

	if called {
		t.Fatal("subscriber should not be invoked for a non-complete request")
	}
}

func TestSetControlAppliesThroughPendingControls(t *testing.T) {
	fw := cameratest.New()
	fw.Controls = []ControlInfo{{ID: 9, Name: "Brightness", Type: v4l2.CtrlTypeInt, Min: -1, Max: 1, Default: 0}}
	p := New(fw, &fakeAllocator{}, zerolog.Nop())
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := p.SetControl("Brightness", 0.5); err != nil {
		t.Fatalf("set control: %v", err)
	}

	p.pendingControlsMu.Lock()
	n := len(p.pendingControls)
	p.pendingControlsMu.Unlock()
	if n != 1 {
		t.Fatalf("expected one pending control queued, got %d", n)
	}
}

package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
)

type fakeCamera struct {
	mu      sync.Mutex
	started bool
	starts  int
	stops   int
	sub     camera.CaptureFunc
}

func (f *fakeCamera) Start(sub camera.CaptureFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.starts++
	f.sub = sub
	return nil
}

func (f *fakeCamera) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.stops++
	return nil
}

type fakeAdapter struct {
	mu      sync.Mutex
	closed  bool
	listens int
	sent    []int64
}

func (a *fakeAdapter) Listen(addr string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listens++
	return nil
}

func (a *fakeAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *fakeAdapter) Send(buf camera.FrameBuffer, ts int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, ts)
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeCamera, *fakeAdapter, *fakeAdapter) {
	t.Helper()
	cam := &fakeCamera{}
	h264 := &fakeAdapter{}
	mjpeg := &fakeAdapter{}
	o := New(cam,
		func() (StreamAdapter, error) { return h264, nil },
		func() (StreamAdapter, error) { return mjpeg, nil },
		":0", ":0",
		zerolog.Nop(),
	)
	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return o, cam, h264, mjpeg
}

func TestCameraStartsOnFirstSubscriberAndStopsWhenBothGone(t *testing.T) {
	o, cam, _, _ := newTestOrchestrator(t)

	o.OnH264SubscriberChange(true)
	if !cam.started {
		t.Fatal("expected camera started after first subscriber")
	}

	o.OnMJPEGSubscriberChange(true)
	if cam.starts != 1 {
		t.Fatalf("expected camera started exactly once, got %d starts", cam.starts)
	}

	o.OnH264SubscriberChange(false)
	if !cam.started {
		t.Fatal("expected camera to remain started with one subscriber left")
	}

	o.OnMJPEGSubscriberChange(false)
	if cam.started {
		t.Fatal("expected camera stopped once both subscribers are gone")
	}
}

func TestFanOutRespectsConnectedFlags(t *testing.T) {
	o, cam, h264, mjpeg := newTestOrchestrator(t)

	o.OnH264SubscriberChange(true)
	time.Sleep(5 * time.Millisecond)

	cam.mu.Lock()
	sub := cam.sub
	cam.mu.Unlock()
	sub(camera.FrameBuffer{}, camera.FrameBuffer{}, 100)

	h264.mu.Lock()
	gotH264 := len(h264.sent)
	h264.mu.Unlock()
	mjpeg.mu.Lock()
	gotMJPEG := len(mjpeg.sent)
	mjpeg.mu.Unlock()

	if gotH264 != 1 {
		t.Fatalf("expected one frame forwarded to h264, got %d", gotH264)
	}
	if gotMJPEG != 0 {
		t.Fatalf("expected no frame forwarded to mjpeg, got %d", gotMJPEG)
	}
}

func TestThermalTripDismantlesAdaptersAndStopsCamera(t *testing.T) {
	o, cam, h264, _ := newTestOrchestrator(t)
	o.OnH264SubscriberChange(true)

	o.OnThermalChange(true)

	h264.mu.Lock()
	closed := h264.closed
	h264.mu.Unlock()
	if !closed {
		t.Fatal("expected h264 adapter closed on thermal trip")
	}
	if cam.started {
		t.Fatal("expected camera stopped on thermal trip")
	}

	o.OnThermalChange(false)
	if o.h264Adapter == nil {
		t.Fatal("expected h264 adapter recreated once thermal trip clears")
	}
}

// Package orchestrator ties subscriber presence on the two stream adapters
// to the camera's started/stopped state, and reacts to thermal-watchdog
// events by dismantling and recreating both adapters.
package orchestrator

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
)

// Camera is the subset of *camera.Pipeline the orchestrator drives.
type Camera interface {
	Start(subscriber camera.CaptureFunc) error
	Stop() error
}

// StreamAdapter is the common shape of the H.264 and MJPEG stream adapters
// from the orchestrator's point of view: something that can be listened on,
// torn down, and fed a captured frame.
type StreamAdapter interface {
	Listen(addr string) error
	Close() error
	Send(buf camera.FrameBuffer, timestampMicros int64)
}

// AdapterFactory builds a fresh stream adapter instance, used to recreate
// adapters after a thermal trip clears.
type AdapterFactory func() (StreamAdapter, error)

// Orchestrator tracks h264Connected/mjpegConnected and starts or stops the
// camera as those flags change.
type Orchestrator struct {
	cam Camera
	log zerolog.Logger

	newH264   AdapterFactory
	newMJPEG  AdapterFactory
	h264Addr  string
	mjpegAddr string

	mu             sync.Mutex
	h264Adapter    StreamAdapter
	mjpegAdapter   StreamAdapter
	h264Connected  bool
	mjpegConnected bool
	cameraStarted  bool
	tooHigh        bool
}

// New builds an Orchestrator around a camera and factories for the two
// stream adapters.
func New(
	cam Camera,
	newH264, newMJPEG AdapterFactory,
	h264Addr, mjpegAddr string,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cam: cam, log: log,
		newH264: newH264, newMJPEG: newMJPEG,
		h264Addr: h264Addr, mjpegAddr: mjpegAddr,
	}
}

// Start creates both stream adapters and listens on their configured
// addresses; the camera itself is not started until a subscriber connects.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.createAdaptersLocked()
}

func (o *Orchestrator) createAdaptersLocked() error {
	h264Adapter, err := o.newH264()
	if err != nil {
		return err
	}
	if err := h264Adapter.Listen(o.h264Addr); err != nil {
		return err
	}
	o.h264Adapter = h264Adapter

	mjpegAdapter, err := o.newMJPEG()
	if err != nil {
		return err
	}
	if err := mjpegAdapter.Listen(o.mjpegAddr); err != nil {
		return err
	}
	o.mjpegAdapter = mjpegAdapter

	return nil
}

func (o *Orchestrator) destroyAdaptersLocked() {
	if o.h264Adapter != nil {
		_ = o.h264Adapter.Close()
		o.h264Adapter = nil
	}
	if o.mjpegAdapter != nil {
		_ = o.mjpegAdapter.Close()
		o.mjpegAdapter = nil
	}
}

// OnH264SubscriberChange is the callback the H.264 adapter invokes when its
// subscriber slot transitions between empty and occupied.
func (o *Orchestrator) OnH264SubscriberChange(connected bool) {
	o.mu.Lock()
	o.h264Connected = connected
	o.mu.Unlock()
	o.reconcile()
}

// OnMJPEGSubscriberChange is the MJPEG analog of OnH264SubscriberChange.
func (o *Orchestrator) OnMJPEGSubscriberChange(connected bool) {
	o.mu.Lock()
	o.mjpegConnected = connected
	o.mu.Unlock()
	o.reconcile()
}

// reconcile applies the orchestrator's sole piece of policy: stop the
// camera once neither stream has a subscriber; start it, with a fan-out
// consumer, as soon as at least one does and it is not already running.
func (o *Orchestrator) reconcile() {
	o.mu.Lock()
	neither := !o.h264Connected && !o.mjpegConnected
	shouldStart := (o.h264Connected || o.mjpegConnected) && !o.cameraStarted && !o.tooHigh
	started := o.cameraStarted
	o.mu.Unlock()

	if neither && started {
		if err := o.cam.Stop(); err != nil {
			o.log.Error().Err(err).Msg("failed to stop camera")
		}
		o.mu.Lock()
		o.cameraStarted = false
		o.mu.Unlock()
		return
	}

	if shouldStart {
		if err := o.cam.Start(o.fanOut); err != nil {
			o.log.Error().Err(err).Msg("failed to start camera")
			return
		}
		o.mu.Lock()
		o.cameraStarted = true
		o.mu.Unlock()
	}
}

// fanOut is the camera pipeline's subscriber: it dispatches the high-tier
// buffer to the H.264 adapter and the low-tier buffer to the MJPEG adapter,
// each only if that stream currently has a subscriber.
func (o *Orchestrator) fanOut(high, low camera.FrameBuffer, timestampMicros int64) {
	o.mu.Lock()
	h264Connected := o.h264Connected
	mjpegConnected := o.mjpegConnected
	h264Adapter := o.h264Adapter
	mjpegAdapter := o.mjpegAdapter
	o.mu.Unlock()

	if h264Connected && h264Adapter != nil {
		h264Adapter.Send(high, timestampMicros)
	}
	if mjpegConnected && mjpegAdapter != nil {
		mjpegAdapter.Send(low, timestampMicros)
	}
}

// OnThermalChange is the thermal watchdog's callback. tooHigh=true tears
// down both stream adapters (which stops their listeners and closes any
// existing subscriber), clears both connected flags and stops the camera
// directly; tooHigh=false recreates and re-listens them.
func (o *Orchestrator) OnThermalChange(tooHigh bool) {
	o.mu.Lock()
	if tooHigh == o.tooHigh {
		o.mu.Unlock()
		return
	}
	o.tooHigh = tooHigh

	if tooHigh {
		o.destroyAdaptersLocked()
		o.h264Connected = false
		o.mjpegConnected = false
		o.mu.Unlock()

		if err := o.cam.Stop(); err != nil {
			o.log.Error().Err(err).Msg("failed to stop camera on thermal trip")
		}
		o.mu.Lock()
		o.cameraStarted = false
		o.mu.Unlock()
		return
	}

	err := o.createAdaptersLocked()
	o.mu.Unlock()
	if err != nil {
		o.log.Error().Err(err).Msg("failed to recreate stream adapters after thermal trip cleared")
	}
}

// Close tears down both stream adapters and stops the camera if running.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.destroyAdaptersLocked()
	started := o.cameraStarted
	o.cameraStarted = false
	o.mu.Unlock()

	if started {
		return o.cam.Stop()
	}
	return nil
}

// Package camera implements the capture side of the pipeline: stream
// configuration, the three-request buffer pool, the completion callback and
// re-enqueue protocol, and the sensor/ISP capability table. The underlying
// camera framework (the libcamera-equivalent collaborator that actually
// owns the sensor and drives request completion) is a narrow interface
// (Framework) — it is deliberately out of scope and has no concrete
// production implementation in this module; see camera/cameratest for the
// fake used by this package's own tests.
package camera

import (
	"github.com/octowatch/videoservice/v4l2"
)

// Tier identifies one of the two stream roles the pipeline configures.
type Tier int

const (
	TierHigh Tier = iota
	TierLow
)

func (t Tier) String() string {
	if t == TierHigh {
		return "high"
	}
	return "low"
}

// StreamConfig is the immutable per-tier stream tuple.
type StreamConfig struct {
	Width         uint32
	Height        uint32
	Stride        uint32
	PixelFormat   v4l2.FourCCType
	ColorSpace    v4l2.ColorspaceType
	FrameByteSize uint32
}

// HighConfig and LowConfig are the two fixed tier configurations: HIGH
// (1920x1080, YUV420) and LOW (800x600, YUV420), sharing a 1920x1080 @
// 12-bit sensor output.
var (
	HighConfig = StreamConfig{
		Width: 1920, Height: 1080, Stride: 1920,
		PixelFormat: v4l2.PixelFmtYUV420, ColorSpace: v4l2.ColorspaceSMPTE170M,
		FrameByteSize: 1920 * 1080 * 3 / 2,
	}
	LowConfig = StreamConfig{
		Width: 800, Height: 600, Stride: 800,
		PixelFormat: v4l2.PixelFmtYUV420, ColorSpace: v4l2.ColorspaceSMPTE170M,
		FrameByteSize: 800 * 600 * 3 / 2,
	}
	// SensorWidth, SensorHeight, SensorBitDepth pin the raw sensor output
	// both tiers are derived from.
	SensorWidth    uint32 = 1920
	SensorHeight   uint32 = 1080
	SensorBitDepth uint32 = 12
)

// FrameBuffer is a DMA-backed buffer wrapped as a single-plane frame
// buffer attached to one tier's stream in a request.
type FrameBuffer struct {
	FD     uintptr
	Length uint32
	Offset uint32
}

// requestState enforces the invariant that a FrameRequest is in exactly
// one of {idle, in-flight, observed} at any moment.
type requestState int

const (
	stateIdle requestState = iota
	stateInFlight
	stateObserved
)

// FrameRequest is the reusable container: one buffer slot per tier plus a
// mutable control list, cycled indefinitely.
type FrameRequest struct {
	handle   FrameworkRequest
	Buffers  [2]FrameBuffer // indexed by Tier
	Controls []v4l2.Control
	state    requestState
}

// CaptureFunc is the subscriber callback the pipeline delivers completed
// frames to: (highBuffer, lowBuffer, timestampMicroseconds) -> ().
type CaptureFunc func(high, low FrameBuffer, timestampMicros int64)

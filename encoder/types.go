// Package encoder implements the hardware encoder core shared by the H.264
// and JPEG M2M encoders: a V4L2 multiplanar buffer-exchange state machine
// spanning a poll goroutine and a deliver goroutine.
package encoder

import (
	"errors"
	"time"
)

// ErrPoisoned is returned by Encode once the "command error" latch has
// tripped. Encode is the only method that checks the latch; Start, Stop
// and the poll/deliver goroutines do not consult it.
var ErrPoisoned = errors.New("encoder: poisoned after prior command failure")

// InputBuffer describes a source frame the owner hands to Encode: a
// DMA-BUF file descriptor plus the valid plane's length and offset within
// it.
type InputBuffer struct {
	FD            uintptr
	PlaneLength   uint32
	PlaneOffset   uint32
}

// Payload is the encoded payload descriptor. For the hardware encoders,
// Data is a copy of the bytes in the kernel-mapped output buffer, taken
// before the buffer is handed back to the driver, so it stays valid after
// the consumer callback returns.
type Payload struct {
	Data            []byte
	BytesUsed       uint32
	BufferIndex     uint32
	Keyframe        bool
	TimestampMicros int64
}

// OutputReadyFunc is the consumer callback invoked by the deliver goroutine
// for each completed payload. It must return before
// the backing memory may be reused by the driver.
type OutputReadyFunc func(Payload)

// Config parameterizes the shared hardware encoder core for one of its two
// instantiations (H.264 or JPEG).
type Config struct {
	DevicePath string

	InputWidth, InputHeight, InputStride uint32
	InputColorSpace uint32

	OutputWidth, OutputHeight uint32
	OutputSizeImage           uint32 // default payload size per output buffer

	InputBufferCount  uint32
	OutputBufferCount uint32

	// FrameIntervalNumerator/Denominator set the M2M output (encoded)
	// stream's frame timing; only meaningful for H.264 (90000/30 over
	// 90000). Zero denominator skips the ioctl.
	FrameIntervalNumerator, FrameIntervalDenominator uint32

	// KeyframeAware controls whether the poll goroutine inspects the
	// driver's keyframe buffer flag (H.264) or always reports false (JPEG).
	// It also decides when a dequeued input slot is freed: at once when
	// true, only after the next output delivery when false.
	KeyframeAware bool

	// JPEGQuality sets V4L2_CID_JPEG_COMPRESSION_QUALITY when non-zero;
	// RepeatSequenceHeader sets V4L2_CID_MPEG_VIDEO_REPEAT_SEQ_HEADER=1 for
	// H.264. These are mutually exclusive in practice (set only one).
	JPEGQuality          int
	RepeatSequenceHeader bool

	// PollTimeout overrides the poll(2) timeout for tests; production fixes
	// it at 200ms.
	PollTimeout time.Duration
}

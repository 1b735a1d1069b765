package encoder

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
)

// DefaultH264Device is the stock path for the hardware H.264 encoder node.
const DefaultH264Device = "/dev/video11"

// H264 wraps a Core configured for the hardware H.264 M2M encoder: six
// DMA-BUF input buffers, twelve MMAP output buffers, repeated SPS/PPS
// headers on every IDR frame, and keyframe-flag-aware payloads.
type H264 struct {
	*Core
}

// NewH264 opens the H.264 encoder device and configures it for the
// high-tier stream's dimensions at 30fps.
func NewH264(devicePath string, log zerolog.Logger) (*H264, error) {
	if devicePath == "" {
		devicePath = DefaultH264Device
	}

	cfg := Config{
		DevicePath: devicePath,

		InputWidth:      camera.HighConfig.Width,
		InputHeight:     camera.HighConfig.Height,
		InputStride:     camera.HighConfig.Stride,
		InputColorSpace: uint32(camera.HighConfig.ColorSpace),

		OutputWidth:     camera.HighConfig.Width,
		OutputHeight:    camera.HighConfig.Height,
		OutputSizeImage: 512 * 1024,

		InputBufferCount:  6,
		OutputBufferCount: 12,

		FrameIntervalNumerator:   1,
		FrameIntervalDenominator: 30,

		KeyframeAware:        true,
		RepeatSequenceHeader: true,

		PollTimeout: 200 * time.Millisecond,
	}

	core, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &H264{Core: core}, nil
}

// Encode adapts a camera.FrameBuffer to the input descriptor Core expects.
func (h *H264) Encode(buf camera.FrameBuffer, timestampMicros int64) error {
	return h.Core.Encode(InputBuffer{FD: buf.FD, PlaneLength: buf.Length, PlaneOffset: buf.Offset}, timestampMicros)
}

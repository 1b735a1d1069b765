package encoder

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
)

// DefaultJPEGDevice is the stock path for the hardware still-JPEG encoder
// node.
const DefaultJPEGDevice = "/dev/video31"

// DefaultJPEGQuality is used when the owner does not override it via
// configuration.
const DefaultJPEGQuality = 95

// jpegOutputHeight is the low-tier frame height padded up to the nearest
// macroblock boundary (600 -> 608), matching what the hardware JPEG encoder
// actually writes into the output buffer.
const jpegOutputHeight = 608

// JPEG wraps a Core configured for the hardware JPEG M2M encoder: a single
// DMA-BUF input buffer and a single MMAP output buffer, so the 1:1
// input/output pairing in Core's deliver loop is what throttles capture to
// one in-flight still at a time.
type JPEG struct {
	*Core
}

// NewJPEG opens the JPEG encoder device and configures it for the low-tier
// stream's dimensions. quality must be in [1, 100]; values outside that
// range fall back to DefaultJPEGQuality.
func NewJPEG(devicePath string, quality int, log zerolog.Logger) (*JPEG, error) {
	if devicePath == "" {
		devicePath = DefaultJPEGDevice
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	cfg := Config{
		DevicePath: devicePath,

		InputWidth:      camera.LowConfig.Width,
		InputHeight:     camera.LowConfig.Height,
		InputStride:     camera.LowConfig.Stride,
		InputColorSpace: uint32(camera.LowConfig.ColorSpace),

		OutputWidth:     camera.LowConfig.Width,
		OutputHeight:    jpegOutputHeight,
		OutputSizeImage: camera.LowConfig.Width * jpegOutputHeight,

		InputBufferCount:  1,
		OutputBufferCount: 1,

		KeyframeAware: false,
		JPEGQuality:   quality,

		PollTimeout: 200 * time.Millisecond,
	}

	core, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &JPEG{Core: core}, nil
}

// Encode adapts a camera.FrameBuffer to the input descriptor Core expects,
// so JPEG exposes the same encode shape as cpujpeg.Encoder.
func (j *JPEG) Encode(buf camera.FrameBuffer, timestampMicros int64) error {
	return j.Core.Encode(InputBuffer{FD: buf.FD, PlaneLength: buf.Length, PlaneOffset: buf.Offset}, timestampMicros)
}

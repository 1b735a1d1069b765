// Package cpujpeg is the pure-software fallback still-image encoder: it
// converts a planar YUV 4:2:0 frame straight to JPEG using the standard
// library's image/jpeg encoder, selected in place of the hardware JPEG
// encoder core when OCTOWATCH_JPEG_ENCODER is set to CPU.
package cpujpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

// DefaultQuality mirrors encoder.DefaultJPEGQuality so both JPEG paths
// agree on a baseline when the owner does not configure one explicitly.
const DefaultQuality = encoder.DefaultJPEGQuality

// Encoder converts planar YUV 4:2:0 frames to JPEG on the CPU. It satisfies
// the same register-callback/push-a-frame shape as the hardware JPEG
// encoder core, so the MJPEG stream adapter can use either interchangeably.
type Encoder struct {
	quality int
	log     zerolog.Logger

	mu      sync.Mutex
	onReady encoder.OutputReadyFunc
}

// New builds a CPU JPEG encoder at the given quality, which must be in
// [1, 100]; values outside that range fall back to DefaultQuality.
func New(quality int, log zerolog.Logger) *Encoder {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{quality: quality, log: log}
}

// SetOutputReadyCallback installs the callback invoked once per encoded
// frame from Encode.
func (e *Encoder) SetOutputReadyCallback(fn encoder.OutputReadyFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReady = fn
}

// Encode reads buf's backing DMA-BUF memory (mapped read-only for the
// duration of the call), reassembles it as planar YUV 4:2:0 at
// camera.LowConfig's dimensions, encodes it to JPEG, and invokes the
// registered callback with the result. There is no hardware buffer index
// to report back; BufferIndex is always zero.
func (e *Encoder) Encode(buf camera.FrameBuffer, timestampMicros int64) error {
	mapped, err := unix.Mmap(int(buf.FD), 0, int(buf.Length), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap cpu jpeg source buffer: %w", err)
	}
	defer unix.Munmap(mapped)

	width := int(camera.LowConfig.Width)
	height := int(camera.LowConfig.Height)
	stride := int(camera.LowConfig.Stride)

	img, err := planarYUV420ToImage(mapped[buf.Offset:], width, height, stride)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return fmt.Errorf("jpeg encode: %w", err)
	}

	e.mu.Lock()
	onReady := e.onReady
	e.mu.Unlock()
	if onReady != nil {
		onReady(encoder.Payload{
			Data:            out.Bytes(),
			BytesUsed:       uint32(out.Len()),
			Keyframe:        true, // every still is independently decodable
			TimestampMicros: timestampMicros,
		})
	}
	return nil
}

// planarYUV420ToImage reassembles a contiguous I420 buffer (Y plane at
// stride*height bytes, followed by half-resolution Cb then Cr planes) into
// an *image.YCbCr, copying row by row since image.YCbCr's own plane strides
// need not match the source stride.
func planarYUV420ToImage(frame []byte, width, height, stride int) (*image.YCbCr, error) {
	chromaWidth := (width + 1) / 2
	chromaHeight := (height + 1) / 2
	chromaStride := (stride + 1) / 2

	ySize := stride * height
	cSize := chromaStride * chromaHeight
	if len(frame) < ySize+2*cSize {
		return nil, fmt.Errorf("cpu jpeg: short frame: got %d bytes, want at least %d", len(frame), ySize+2*cSize)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)

	srcY := frame[:ySize]
	srcCb := frame[ySize : ySize+cSize]
	srcCr := frame[ySize+cSize : ySize+2*cSize]

	for row := 0; row < height; row++ {
		copy(img.Y[row*img.YStride:row*img.YStride+width], srcY[row*stride:row*stride+width])
	}
	for row := 0; row < chromaHeight; row++ {
		copy(img.Cb[row*img.CStride:row*img.CStride+chromaWidth], srcCb[row*chromaStride:row*chromaStride+chromaWidth])
		copy(img.Cr[row*img.CStride:row*img.CStride+chromaWidth], srcCr[row*chromaStride:row*chromaStride+chromaWidth])
	}

	return img, nil
}

package encoder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	sys "golang.org/x/sys/unix"

	"github.com/octowatch/videoservice/v4l2"
)

// Core is the hardware M2M encoder state machine shared by the H.264 and
// JPEG encoders: a poll goroutine drains both queues and
// hands completed output buffers to a deliver goroutine, which invokes the
// consumer callback and re-queues the buffer.
//
// Input buffers are DMA-BUF imports supplied per-call by the owner (the
// camera pipeline's own frame buffers, zero-copy); Core only tracks which
// input slot indices are currently queued with the driver. Output buffers
// are MMAP memory Core allocates and owns for the lifetime of the encoder.
type Core struct {
	cfg Config
	log zerolog.Logger
	fd  uintptr

	inputPlanes  int
	outputPlanes int
	outputMaps   [][]byte

	mu            sync.Mutex
	freeInput     []uint32
	readyToReuse  []uint32 // JPEG only: dequeued input slots awaiting their output round-trip before becoming free again
	poisoned      bool
	started       bool

	out    chan Payload
	stopCh chan struct{}
	wg     sync.WaitGroup

	onReady OutputReadyFunc
}

// Open creates a Core against cfg.DevicePath: sets both queue formats,
// applies codec-specific controls, allocates the input/output buffer pools,
// maps the output buffers, and queues all output buffers. Streaming is not
// turned on here; the returned Core is ready for Encode once Start is
// called.
func Open(cfg Config, log zerolog.Logger) (*Core, error) {
	fd, err := v4l2.OpenDevice(cfg.DevicePath, sys.O_RDWR|sys.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DevicePath, err)
	}

	c := &Core{cfg: cfg, log: log.With().Str("device", cfg.DevicePath).Logger(), fd: fd}

	if err := c.configureFormats(); err != nil {
		c.closeFD()
		return nil, err
	}
	if err := c.applyControls(); err != nil {
		c.closeFD()
		return nil, err
	}
	if err := c.allocateBuffers(); err != nil {
		c.closeFD()
		return nil, err
	}

	return c, nil
}

func (c *Core) closeFD() {
	_ = sys.Close(int(c.fd))
}

func (c *Core) configureFormats() error {
	inPix := v4l2.PixFormatMP{
		Width:       c.cfg.InputWidth,
		Height:      c.cfg.InputHeight,
		PixelFormat: v4l2.PixelFmtYUV420,
		Field:       v4l2.FieldNone,
		Colorspace:  v4l2.ColorspaceType(c.cfg.InputColorSpace),
		Planes:      []v4l2.PlaneFormat{{BytesPerLine: c.cfg.InputStride}},
	}
	got, err := v4l2.SetPixFormatMP(c.fd, v4l2.BufTypeVideoOutputMPlane, inPix)
	if err != nil {
		return fmt.Errorf("set input format: %w", err)
	}
	c.inputPlanes = len(got.Planes)
	if c.inputPlanes == 0 {
		c.inputPlanes = 1
	}

	var outFourCC v4l2.FourCCType
	if c.cfg.JPEGQuality > 0 {
		outFourCC = v4l2.PixelFmtJPEG
	} else {
		outFourCC = v4l2.PixelFmtH264
	}
	outPix := v4l2.PixFormatMP{
		Width:       c.cfg.OutputWidth,
		Height:      c.cfg.OutputHeight,
		PixelFormat: outFourCC,
		Field:       v4l2.FieldNone,
		Planes:      []v4l2.PlaneFormat{{SizeImage: c.cfg.OutputSizeImage}},
	}
	gotOut, err := v4l2.SetPixFormatMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, outPix)
	if err != nil {
		return fmt.Errorf("set output format: %w", err)
	}
	c.outputPlanes = len(gotOut.Planes)
	if c.outputPlanes == 0 {
		c.outputPlanes = 1
	}

	if c.cfg.FrameIntervalDenominator != 0 {
		if err := v4l2.SetOutputFrameInterval(c.fd, c.cfg.FrameIntervalNumerator, c.cfg.FrameIntervalDenominator); err != nil {
			return fmt.Errorf("set frame interval: %w", err)
		}
	}
	return nil
}

func (c *Core) applyControls() error {
	if c.cfg.RepeatSequenceHeader {
		if err := v4l2.SetControlValue(c.fd, v4l2.CtrlMPEGVideoRepeatSeqHeader, 1); err != nil {
			return fmt.Errorf("set repeat-sequence-header control: %w", err)
		}
	}
	if c.cfg.JPEGQuality > 0 {
		if err := v4l2.SetControlValue(c.fd, v4l2.CtrlJPEGCompressionQuality, int32(c.cfg.JPEGQuality)); err != nil {
			return fmt.Errorf("set jpeg quality control: %w", err)
		}
	}
	return nil
}

// allocateBuffers requests the input queue's DMA-BUF slots (memory supplied
// per-call, so the driver only needs a slot count) and the output queue's
// MMAP buffers, then maps and queues every output buffer so the driver can
// start producing as soon as streaming begins.
func (c *Core) allocateBuffers() error {
	n, err := v4l2.RequestBuffersMP(c.fd, v4l2.BufTypeVideoOutputMPlane, v4l2.StreamTypeDMABuf, c.cfg.InputBufferCount)
	if err != nil {
		return fmt.Errorf("request input buffers: %w", err)
	}
	c.freeInput = make([]uint32, n)
	for i := range c.freeInput {
		c.freeInput[i] = uint32(i)
	}

	m, err := v4l2.RequestBuffersMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, v4l2.StreamTypeMMAP, c.cfg.OutputBufferCount)
	if err != nil {
		return fmt.Errorf("request output buffers: %w", err)
	}

	c.outputMaps = make([][]byte, m)
	for i := uint32(0); i < m; i++ {
		buf, err := v4l2.QueryBufferMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, v4l2.StreamTypeMMAP, i, c.outputPlanes)
		if err != nil {
			return fmt.Errorf("query output buffer %d: %w", i, err)
		}
		mapped, err := v4l2.MapMemoryBuffer(c.fd, int64(buf.Planes[0].MemOffset), int(buf.Planes[0].Length))
		if err != nil {
			return fmt.Errorf("mmap output buffer %d: %w", i, err)
		}
		c.outputMaps[i] = mapped

		if err := v4l2.QueueBufferMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, v4l2.StreamTypeMMAP, v4l2.BufferMP{
			Index:  i,
			Planes: []v4l2.BufferPlane{{Length: buf.Planes[0].Length}},
		}); err != nil {
			return fmt.Errorf("queue output buffer %d: %w", i, err)
		}
	}
	return nil
}

// SetOutputReadyCallback installs the callback invoked once per completed
// output buffer. Safe to call before or after Start; the deliver goroutine
// reads the current callback under lock on every delivery.
func (c *Core) SetOutputReadyCallback(fn OutputReadyFunc) {
	c.mu.Lock()
	c.onReady = fn
	c.mu.Unlock()
}

// Start begins both queues streaming and launches the poll and deliver
// goroutines. Call SetOutputReadyCallback beforehand to receive payloads.
func (c *Core) Start() error {
	if err := v4l2.StreamOnType(c.fd, v4l2.BufTypeVideoOutputMPlane); err != nil {
		return fmt.Errorf("stream on input queue: %w", err)
	}
	if err := v4l2.StreamOnType(c.fd, v4l2.BufTypeVideoCaptureMPlane); err != nil {
		return fmt.Errorf("stream on output queue: %w", err)
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	c.out = make(chan Payload, c.cfg.OutputBufferCount)
	c.stopCh = make(chan struct{})

	c.wg.Add(2)
	go c.pollLoop()
	go c.deliverLoop()
	return nil
}

// Stop signals both goroutines to exit, waits for them, and stops both
// queues.
func (c *Core) Stop() error {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()

	var firstErr error
	if err := v4l2.StreamOffType(c.fd, v4l2.BufTypeVideoOutputMPlane); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := v4l2.StreamOffType(c.fd, v4l2.BufTypeVideoCaptureMPlane); err != nil && firstErr == nil {
		firstErr = err
	}
	c.closeFD()
	return firstErr
}

// Encode submits one input frame for encoding. If no input slot is free the
// frame is dropped and logged rather than queued behind a stall: a full
// input queue never blocks the caller.
func (c *Core) Encode(input InputBuffer, timestampMicros int64) error {
	c.mu.Lock()
	if c.poisoned {
		c.mu.Unlock()
		return ErrPoisoned
	}
	if len(c.freeInput) == 0 {
		c.mu.Unlock()
		c.log.Warn().Msg("dropping frame: no free encoder input slot")
		return nil
	}
	index := c.freeInput[len(c.freeInput)-1]
	c.freeInput = c.freeInput[:len(c.freeInput)-1]
	c.mu.Unlock()

	buf := v4l2.BufferMP{
		Index: index,
		Timestamp: sys.Timeval{
			Sec:  timestampMicros / 1_000_000,
			Usec: timestampMicros % 1_000_000,
		},
		Planes: []v4l2.BufferPlane{{
			FD:         int32(input.FD),
			BytesUsed:  input.PlaneLength,
			Length:     input.PlaneLength + input.PlaneOffset,
			DataOffset: input.PlaneOffset,
		}},
	}

	if err := v4l2.QueueBufferMP(c.fd, v4l2.BufTypeVideoOutputMPlane, v4l2.StreamTypeDMABuf, buf); err != nil {
		c.poison()
		return fmt.Errorf("queue input buffer: %w", err)
	}
	return nil
}

func (c *Core) poison() {
	c.mu.Lock()
	c.poisoned = true
	c.mu.Unlock()
	c.log.Error().Msg("encoder poisoned after ioctl failure")
}

// pollLoop repeatedly calls poll(deviceFD, POLLIN, 200ms); on ready, drains
// whatever is dequeueable from the input queue (frees the slot for reuse)
// and the output queue (hands a Payload to the deliver goroutine). A
// dequeue attempt on a queue with nothing ready returns ErrorTemporary,
// which is expected and not an error here: POLLIN alone does not
// distinguish which of the two queues has something ready, so both sides
// are tried opportunistically rather than gated on which bit fired.
func (c *Core) pollLoop() {
	defer c.wg.Done()

	timeout := c.cfg.PollTimeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		ready, err := v4l2.PollDeviceRead(c.fd, timeout)
		if err != nil {
			if errors.Is(err, v4l2.ErrorInterrupted) {
				continue
			}
			c.poison()
			return
		}
		if !ready {
			continue
		}

		c.drainInputQueue()
		c.drainOutputQueue()
	}
}

func (c *Core) drainInputQueue() {
	for {
		buf, err := v4l2.DequeueBufferMP(c.fd, v4l2.BufTypeVideoOutputMPlane, v4l2.StreamTypeDMABuf, c.inputPlanes)
		if err != nil {
			if errors.Is(err, v4l2.ErrorTemporary) {
				return
			}
			c.poison()
			return
		}
		c.mu.Lock()
		if c.cfg.KeyframeAware {
			// Multi-buffer streams (H.264: 6 input / 12 output) don't need the
			// output round-trip to throttle capture, so the slot is reusable
			// immediately.
			c.freeInput = append(c.freeInput, buf.Index)
		} else {
			c.readyToReuse = append(c.readyToReuse, buf.Index)
		}
		c.mu.Unlock()
	}
}

func (c *Core) drainOutputQueue() {
	for {
		buf, err := v4l2.DequeueBufferMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, v4l2.StreamTypeMMAP, c.outputPlanes)
		if err != nil {
			if errors.Is(err, v4l2.ErrorTemporary) {
				return
			}
			c.poison()
			return
		}

		bytesUsed := buf.Planes[0].BytesUsed
		mapped := c.outputMaps[buf.Index]
		if int(bytesUsed) > len(mapped) {
			bytesUsed = uint32(len(mapped))
		}
		data := make([]byte, bytesUsed)
		copy(data, mapped[:bytesUsed])

		payload := Payload{
			Data:            data,
			BytesUsed:       bytesUsed,
			BufferIndex:     buf.Index,
			Keyframe:        c.cfg.KeyframeAware && buf.Flags&uint32(v4l2.BufFlagKeyFrame) != 0,
			TimestampMicros: buf.Timestamp.Sec*1_000_000 + buf.Timestamp.Usec,
		}

		select {
		case c.out <- payload:
		case <-c.stopCh:
			return
		}
	}
}

// deliverLoop hands each completed payload to the consumer callback, then
// re-queues the output buffer so the driver can fill it again. With
// OutputBufferCount == 1 (the JPEG encoder) this is what enforces the "one
// in-flight encode at a time" pairing: the driver cannot produce another
// output until this re-queue happens, so the matching input slot is only
// released here too. Multi-buffer streams (H.264) free their input slots as
// soon as they're dequeued in drainInputQueue instead.
func (c *Core) deliverLoop() {
	defer c.wg.Done()

	for {
		select {
		case payload := <-c.out:
			c.mu.Lock()
			onReady := c.onReady
			c.mu.Unlock()
			if onReady != nil {
				onReady(payload)
			}
			if err := v4l2.QueueBufferMP(c.fd, v4l2.BufTypeVideoCaptureMPlane, v4l2.StreamTypeMMAP, v4l2.BufferMP{
				Index:  payload.BufferIndex,
				Planes: []v4l2.BufferPlane{{Length: uint32(len(c.outputMaps[payload.BufferIndex]))}},
			}); err != nil {
				c.poison()
				return
			}

			c.mu.Lock()
			if !c.cfg.KeyframeAware && len(c.readyToReuse) > 0 {
				c.freeInput = append(c.freeInput, c.readyToReuse[0])
				c.readyToReuse = c.readyToReuse[1:]
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

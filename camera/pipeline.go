package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/capability"
	"github.com/octowatch/videoservice/dmaheap"
	"github.com/octowatch/videoservice/v4l2"
)

// RequestCount is the fixed size of the reusable request pool.
const RequestCount = 3

// stopPollInterval is how often Stop polls the pending-request count while
// draining, matching Camera::stop's 100ms sleep loop.
const stopPollInterval = 100 * time.Millisecond

// BufferAllocator is the subset of *dmaheap.Heap the pipeline needs,
// narrowed to an interface so tests can substitute an in-memory fake
// instead of opening a real kernel heap device.
type BufferAllocator interface {
	Alloc(name string, sizeBytes uint32) (dmaheap.Buffer, error)
}

// Pipeline is the camera pipeline component: it configures two streams,
// owns the request/buffer pool, and dispatches completed frames to a
// subscriber.
type Pipeline struct {
	framework Framework
	heap      BufferAllocator
	log       zerolog.Logger

	requests [RequestCount]*FrameRequest

	mu              sync.Mutex // guards requests[].state and pendingCount
	pendingCount    int
	started         bool

	pendingControlsMu sync.Mutex
	pendingControls   []v4l2.Control

	subscriber CaptureFunc

	capabilities *capability.Table
}

// New wires a Pipeline against a Framework and a DMA heap, but performs no
// I/O; call Initialize to run the full setup sequence.
func New(framework Framework, heap BufferAllocator, log zerolog.Logger) *Pipeline {
	return &Pipeline{framework: framework, heap: heap, log: log}
}

// Initialize starts the framework, requires exactly one camera, acquires
// it, generates the default configuration, validates, configures, then
// builds the three-request pool with one DMA buffer per tier each. The
// generated configuration is passed to Validate and Configure unchanged:
// the tier entries and sensor output are not overwritten with HighConfig,
// LowConfig or the Sensor* values here.
func (p *Pipeline) Initialize() error {
	count, err := p.framework.Start()
	if err != nil {
		return fmt.Errorf("start framework: %w", err)
	}
	if count != 1 {
		return fmt.Errorf("camera pipeline: expected exactly one camera, found %d", count)
	}

	if err := p.framework.Acquire(); err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}

	cfg, err := p.framework.GenerateConfiguration()
	if err != nil {
		return fmt.Errorf("generate configuration: %w", err)
	}

	result, err := p.framework.Validate(cfg)
	if err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	if result == ValidationInvalid {
		return fmt.Errorf("camera pipeline: configuration rejected as invalid")
	}

	if err := p.framework.Configure(cfg); err != nil {
		return fmt.Errorf("configure camera: %w", err)
	}

	if err := p.buildRequestPool(); err != nil {
		return fmt.Errorf("build request pool: %w", err)
	}

	controls, err := p.framework.ControlInfoMap()
	if err != nil {
		return fmt.Errorf("read control info map: %w", err)
	}
	infos := make([]capability.ControlInfo, len(controls))
	for i, c := range controls {
		infos[i] = capability.ControlInfo{ID: c.ID, Name: c.Name, Type: c.Type, Min: c.Min, Max: c.Max, Default: c.Default}
	}
	p.capabilities = capability.New(infos, p, p.log)

	return nil
}

// buildRequestPool creates RequestCount reusable requests, each with one
// DMA buffer per tier attached.
func (p *Pipeline) buildRequestPool() error {
	tiers := []struct {
		tier Tier
		cfg  StreamConfig
	}{{TierHigh, HighConfig}, {TierLow, LowConfig}}

	for i := 0; i < RequestCount; i++ {
		handle, err := p.framework.CreateRequest()
		if err != nil {
			return fmt.Errorf("create request %d: %w", i, err)
		}
		req := &FrameRequest{handle: handle, state: stateIdle}

		for _, t := range tiers {
			name := fmt.Sprintf("octowatch-req%d-%s", i, t.tier)
			buf, err := p.heap.Alloc(name, t.cfg.FrameByteSize)
			if err != nil {
				return fmt.Errorf("allocate %s buffer for request %d: %w", t.tier, i, err)
			}
			fb := FrameBuffer{FD: buf.FD, Length: buf.Length}
			req.Buffers[t.tier] = fb
			if err := p.framework.AttachBuffer(handle, t.tier, fb); err != nil {
				return fmt.Errorf("attach %s buffer for request %d: %w", t.tier, i, err)
			}
		}

		p.requests[i] = req
	}
	return nil
}

// Capabilities exposes the sensor/ISP capability table built during
// Initialize.
func (p *Pipeline) Capabilities() *capability.Table {
	return p.capabilities
}

// Start installs the completion callback, starts the framework, and
// enqueues all three requests.
func (p *Pipeline) Start(subscriber CaptureFunc) error {
	p.mu.Lock()
	p.subscriber = subscriber
	p.started = true
	p.mu.Unlock()

	p.framework.SetCompletionCallback(p.onRequestCompleted)

	if _, err := p.framework.Start(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}

	for _, req := range p.requests {
		if err := p.enqueue(req); err != nil {
			return fmt.Errorf("initial enqueue: %w", err)
		}
	}
	return nil
}

// onRequestCompleted is the completion callback, which may be invoked on
// the framework's own thread and therefore must be re-entrancy-safe with
// respect to request-pool access.
func (p *Pipeline) onRequestCompleted(completed CompletedRequest) {
	p.mu.Lock()
	p.pendingCount--
	started := p.started
	subscriber := p.subscriber
	p.mu.Unlock()

	if completed.Status != StatusComplete {
		p.log.Warn().Int("status", int(completed.Status)).Msg("dropping incomplete request")
		return
	}
	if !started {
		return
	}

	req := p.findRequest(completed.Handle)
	if req == nil {
		p.log.Error().Msg("completion callback for unknown request handle")
		return
	}
	p.mu.Lock()
	req.state = stateObserved
	p.mu.Unlock()

	tsNanos := completed.SensorTimestampNanos
	if tsNanos == 0 {
		tsNanos = completed.BufferTimestampNanos
	}
	tsMicros := tsNanos / 1000

	if subscriber != nil {
		subscriber(req.Buffers[TierHigh], req.Buffers[TierLow], tsMicros)
	}

	if err := p.reenqueue(req); err != nil {
		p.log.Error().Err(err).Msg("failed to re-enqueue request after completion")
	}
}

func (p *Pipeline) findRequest(handle FrameworkRequest) *FrameRequest {
	for _, req := range p.requests {
		if req.handle == handle {
			return req
		}
	}
	return nil
}

// reenqueue moves any pending controls into the request under the
// pending-controls lock, then queues the request with the framework,
// incrementing the pending count only on success.
func (p *Pipeline) reenqueue(req *FrameRequest) error {
	p.pendingControlsMu.Lock()
	controls := p.pendingControls
	p.pendingControls = nil
	p.pendingControlsMu.Unlock()

	if len(controls) > 0 {
		req.Controls = controls
		if err := p.framework.SetControls(req.handle, controls); err != nil {
			return fmt.Errorf("apply pending controls: %w", err)
		}
	}

	return p.enqueue(req)
}

func (p *Pipeline) enqueue(req *FrameRequest) error {
	if err := p.framework.QueueRequest(req.handle); err != nil {
		return err
	}
	p.mu.Lock()
	p.pendingCount++
	req.state = stateInFlight
	p.mu.Unlock()
	return nil
}

// Stop flips started=false, drains the pending count, then stops the
// framework. Returning here guarantees no completion callback can still
// fire afterward.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	for {
		p.mu.Lock()
		pending := p.pendingCount
		p.mu.Unlock()
		if pending <= 0 {
			break
		}
		time.Sleep(stopPollInterval)
	}

	return p.framework.Stop()
}

// SetControl delegates to the capability table.
func (p *Pipeline) SetControl(name string, value float64) error {
	return p.capabilities.SetValue(name, value, true)
}

// ApplyControl implements capability.ControlSink: it stages the
// down-converted control value onto the pending-controls list consumed by
// the next re-enqueue.
func (p *Pipeline) ApplyControl(id uint32, value v4l2.CtrlValue) error {
	p.pendingControlsMu.Lock()
	defer p.pendingControlsMu.Unlock()
	p.pendingControls = append(p.pendingControls, v4l2.Control{ID: id, Value: value})
	return nil
}

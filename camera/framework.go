package camera

import "github.com/octowatch/videoservice/v4l2"

// CompletionStatus mirrors the small status enum the framework attaches to
// a completed request.
type CompletionStatus int

const (
	StatusComplete CompletionStatus = iota
	StatusCancelled
	StatusIncomplete
)

// FrameworkRequest is an opaque handle to a framework-native request object.
// The camera package never inspects it directly; it only ever passes it
// back into the Framework that produced it.
type FrameworkRequest interface{}

// CompletedRequest is what the Framework hands back to the completion
// callback registered via Framework.SetCompletionCallback.
type CompletedRequest struct {
	Handle    FrameworkRequest
	Status    CompletionStatus
	// SensorTimestampNanos is the sensor-reported capture timestamp in
	// nanoseconds. Zero means "not present"; the pipeline then falls back
	// to the high-tier buffer's own metadata timestamp.
	SensorTimestampNanos int64
	// BufferTimestampNanos is the fallback timestamp taken from the
	// high-tier buffer's own metadata.
	BufferTimestampNanos int64
}

// ControlInfo is the minimal per-control data the Framework exposes for
// capability-table construction.
type ControlInfo struct {
	ID      uint32
	Name    string
	Type    v4l2.CtrlType
	Min     int32
	Max     int32
	Default int32
}

// Framework is the narrow interface standing in for the camera framework
// collaborator: the underlying camera framework, assumed to deliver paired
// frames with timestamps, is deliberately out of scope. A production
// binding for a real sensor framework is not implemented in this module;
// camera.Pipeline is built and tested entirely against this interface,
// favoring message passing through narrow interfaces over virtual classes.
type Framework interface {
	// Start brings up the framework and returns the number of attached
	// cameras; the pipeline requires exactly one.
	Start() (cameraCount int, err error)
	Stop() error

	// Acquire claims exclusive access to the sole camera.
	Acquire() error

	// GenerateConfiguration requests a default configuration for the two
	// stream roles (Raw, Viewfinder). The pipeline validates and configures
	// it as returned; it does not overwrite the tier entries.
	GenerateConfiguration() (Configuration, error)
	// Validate checks a configuration, returning whether it was accepted
	// as-is, adjusted, or rejected.
	Validate(cfg Configuration) (ValidationResult, error)
	Configure(cfg Configuration) error

	// CreateRequest allocates one framework-native request.
	CreateRequest() (FrameworkRequest, error)
	// AttachBuffer binds a FrameBuffer to the given tier's stream within a
	// request, during request-pool construction.
	AttachBuffer(req FrameworkRequest, tier Tier, buf FrameBuffer) error
	// QueueRequest re-submits a request (with any pending controls already
	// applied) to the framework for capture.
	QueueRequest(req FrameworkRequest) error

	// SetCompletionCallback installs the callback invoked (possibly on the
	// framework's own thread) when a request completes.
	SetCompletionCallback(func(CompletedRequest))

	// ControlInfoMap returns the (controlId -> controlInfo) map the
	// capability table is built from.
	ControlInfoMap() ([]ControlInfo, error)
	// SetControls applies a driver control list to the framework ahead of
	// the next QueueRequest for the given request.
	SetControls(req FrameworkRequest, controls []v4l2.Control) error
}

// ValidationResult mirrors libcamera's CameraConfiguration::Status.
type ValidationResult int

const (
	ValidationValid ValidationResult = iota
	ValidationAdjusted
	ValidationInvalid
)

// Configuration is an opaque, framework-native stream configuration handle.
type Configuration interface{}

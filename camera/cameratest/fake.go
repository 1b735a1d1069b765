// Package cameratest provides an in-memory fake of camera.Framework for
// exercising camera.Pipeline without real sensor hardware.
package cameratest

import (
	"fmt"
	"sync"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/v4l2"
)

type request struct {
	id       int
	buffers  map[camera.Tier]camera.FrameBuffer
	controls []v4l2.Control
}

// Fake is a minimal, single-camera Framework double. CameraCount defaults
// to 1 (the success path); set it to any value other than 0 or 1 to
// exercise Pipeline.Initialize's "exactly one camera" failure path. Start
// reports a CameraCount of 0 as 1.
type Fake struct {
	CameraCount int
	Controls    []camera.ControlInfo

	mu         sync.Mutex
	requests   []*request
	onComplete func(camera.CompletedRequest)
	nextID     int
}

func New() *Fake {
	return &Fake{CameraCount: 1}
}

func (f *Fake) Start() (int, error) {
	if f.CameraCount == 0 {
		f.CameraCount = 1
	}
	return f.CameraCount, nil
}

func (f *Fake) Stop() error { return nil }

func (f *Fake) Acquire() error { return nil }

func (f *Fake) GenerateConfiguration() (camera.Configuration, error) {
	return "default-configuration", nil
}

func (f *Fake) Validate(camera.Configuration) (camera.ValidationResult, error) {
	return camera.ValidationValid, nil
}

func (f *Fake) Configure(camera.Configuration) error { return nil }

func (f *Fake) CreateRequest() (camera.FrameworkRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	req := &request{id: f.nextID, buffers: map[camera.Tier]camera.FrameBuffer{}}
	f.requests = append(f.requests, req)
	return req, nil
}

func (f *Fake) AttachBuffer(req camera.FrameworkRequest, tier camera.Tier, buf camera.FrameBuffer) error {
	r, ok := req.(*request)
	if !ok {
		return fmt.Errorf("not a fake request")
	}
	r.buffers[tier] = buf
	return nil
}

func (f *Fake) QueueRequest(camera.FrameworkRequest) error { return nil }

func (f *Fake) SetCompletionCallback(cb func(camera.CompletedRequest)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onComplete = cb
}

func (f *Fake) ControlInfoMap() ([]camera.ControlInfo, error) {
	return f.Controls, nil
}

func (f *Fake) SetControls(req camera.FrameworkRequest, controls []v4l2.Control) error {
	r, ok := req.(*request)
	if !ok {
		return fmt.Errorf("not a fake request")
	}
	r.controls = controls
	return nil
}

// CompleteFirst synthesizes a completion callback for the first request
// created, as if the framework had just finished capturing it.
func (f *Fake) CompleteFirst(status camera.CompletionStatus, sensorTsNanos, bufferTsNanos int64) {
	f.mu.Lock()
	req := f.requests[0]
	cb := f.onComplete
	f.mu.Unlock()

	cb(camera.CompletedRequest{
		Handle:               req,
		Status:               status,
		SensorTimestampNanos: sensorTsNanos,
		BufferTimestampNanos: bufferTsNanos,
	})
}

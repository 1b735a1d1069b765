// Package h264 implements the H.264 stream adapter: it pairs a hardware
// H.264 encoder with a single-subscriber TCP sink and pushes every encoded
// NAL unit to whichever connection is currently attached.
package h264

import (
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

// Encoder is the subset of *encoder.H264 the adapter depends on.
type Encoder interface {
	SetOutputReadyCallback(fn encoder.OutputReadyFunc)
	Start() error
	Stop() error
	Encode(buf camera.FrameBuffer, timestampMicros int64) error
}

// Adapter owns one H.264 encoder and one subscriber connection. Raw NAL
// units are written back-to-back with no additional framing.
type Adapter struct {
	enc Encoder
	log zerolog.Logger

	onSubscriberChange func(connected bool)

	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
}

// New wires an Adapter around enc. onSubscriberChange is invoked (never
// under the adapter's own lock) whenever the single subscriber slot
// transitions between empty and occupied, so the orchestrator can track
// h264Connected.
func New(enc Encoder, onSubscriberChange func(connected bool), log zerolog.Logger) *Adapter {
	a := &Adapter{enc: enc, onSubscriberChange: onSubscriberChange, log: log}
	enc.SetOutputReadyCallback(a.onPayloadReady)
	return a
}

// Listen starts the encoder and the TCP accept loop on addr (e.g. ":8888").
func (a *Adapter) Listen(addr string) error {
	if err := a.enc.Start(); err != nil {
		return fmt.Errorf("start h264 encoder: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = a.enc.Stop()
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	a.listener = ln

	go a.acceptLoop()
	return nil
}

// Close stops accepting connections, closes any current subscriber, and
// tears down the encoder.
func (a *Adapter) Close() error {
	if a.listener != nil {
		_ = a.listener.Close()
	}
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return a.enc.Stop()
}

func (a *Adapter) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}

		a.mu.Lock()
		previous := a.conn
		a.conn = conn
		a.mu.Unlock()
		if previous != nil {
			_ = previous.Close()
		}

		if a.onSubscriberChange != nil {
			a.onSubscriberChange(true)
		}
	}
}

// Send hands a captured high-tier frame to the encoder if a subscriber is
// currently attached; with no subscriber the frame is simply skipped.
func (a *Adapter) Send(high camera.FrameBuffer, timestampMicros int64) {
	a.mu.Lock()
	has := a.conn != nil
	a.mu.Unlock()
	if !has {
		return
	}
	if err := a.enc.Encode(high, timestampMicros); err != nil {
		a.log.Error().Err(err).Msg("h264 encode failed")
	}
}

// onPayloadReady is the encoder's consumer callback: it writes the NAL
// bytes to the current subscriber, closing and clearing the slot on any
// write failure.
func (a *Adapter) onPayloadReady(p encoder.Payload) {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return
	}

	if _, err := conn.Write(p.Data); err != nil {
		a.log.Warn().Err(err).Msg("h264 subscriber write failed, closing connection")
		a.mu.Lock()
		if a.conn == conn {
			a.conn = nil
		}
		a.mu.Unlock()
		_ = conn.Close()
		if a.onSubscriberChange != nil {
			a.onSubscriberChange(false)
		}
	}
}

// Package mjpeg implements the MJPEG stream adapter: it pairs a JPEG
// encoder (hardware or CPU) with a single-subscriber HTTP sink and emits
// the multipart/x-mixed-replace framing byte-for-byte on every delivered
// frame.
package mjpeg

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

const responseHeader = "HTTP/1.1 200 OK\r\nContent-Type: multipart/x-mixed-replace;boundary=FRAME\r\n\r\n"

// Encoder is the subset either encoder.JPEG (hardware) or cpujpeg.Encoder
// (software) must expose for this adapter to drive it; both satisfy this
// shape without any adapting glue.
type Encoder interface {
	SetOutputReadyCallback(fn encoder.OutputReadyFunc)
	Encode(buf camera.FrameBuffer, timestampMicros int64) error
}

// startStopper is implemented by hardware encoders (encoder.JPEG) but not
// by cpujpeg.Encoder, which needs no device stream to start. Adapter type
// asserts for it so either encoder kind can be passed to New.
type startStopper interface {
	Start() error
	Stop() error
}

// Adapter owns one JPEG encoder and one subscriber HTTP connection.
type Adapter struct {
	enc Encoder
	log zerolog.Logger

	onSubscriberChange func(connected bool)

	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// New wires an Adapter around enc.
func New(enc Encoder, onSubscriberChange func(connected bool), log zerolog.Logger) *Adapter {
	a := &Adapter{enc: enc, onSubscriberChange: onSubscriberChange, log: log}
	enc.SetOutputReadyCallback(a.onPayloadReady)
	return a
}

// Listen starts the encoder (if it needs starting) and the HTTP accept
// loop on addr (e.g. ":8887").
func (a *Adapter) Listen(addr string) error {
	if ss, ok := a.enc.(startStopper); ok {
		if err := ss.Start(); err != nil {
			return fmt.Errorf("start jpeg encoder: %w", err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if ss, ok := a.enc.(startStopper); ok {
			_ = ss.Stop()
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	a.listener = ln

	go a.acceptLoop()
	return nil
}

// Close stops accepting connections, closes the current subscriber, and
// stops the encoder if it owns a device stream.
func (a *Adapter) Close() error {
	if a.listener != nil {
		_ = a.listener.Close()
	}
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.w = nil
	a.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	if ss, ok := a.enc.(startStopper); ok {
		return ss.Stop()
	}
	return nil
}

func (a *Adapter) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}
		go a.serve(conn)
	}
}

// serve reads the one request line this protocol cares about (its content
// is not inspected, only that a line terminated by the connection arrived),
// sends the multipart header, and registers the connection as the active
// subscriber.
func (a *Adapter) serve(conn net.Conn) {
	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\n'); err != nil {
		_ = conn.Close()
		return
	}

	if _, err := conn.Write([]byte(responseHeader)); err != nil {
		_ = conn.Close()
		return
	}

	a.mu.Lock()
	previous := a.conn
	a.conn = conn
	a.w = bufio.NewWriter(conn)
	a.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}

	if a.onSubscriberChange != nil {
		a.onSubscriberChange(true)
	}
}

// Send hands a captured low-tier frame to the encoder if a subscriber is
// currently attached.
func (a *Adapter) Send(low camera.FrameBuffer, timestampMicros int64) {
	a.mu.Lock()
	has := a.conn != nil
	a.mu.Unlock()
	if !has {
		return
	}
	if err := a.enc.Encode(low, timestampMicros); err != nil {
		a.log.Error().Err(err).Msg("jpeg encode failed")
	}
}

// onPayloadReady is the encoder's consumer callback: onJpegAvailable. It
// writes the multipart boundary, headers, and JPEG bytes to the current
// subscriber and never blocks on anything but that one TCP write.
func (a *Adapter) onPayloadReady(p encoder.Payload) {
	a.mu.Lock()
	conn := a.conn
	w := a.w
	a.mu.Unlock()
	if conn == nil {
		return
	}

	_, err := fmt.Fprintf(w, "--FRAME\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(p.Data))
	if err == nil {
		_, err = w.Write(p.Data)
	}
	if err == nil {
		_, err = w.Write([]byte("\r\n\r\n"))
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("mjpeg subscriber write failed, closing connection")
		a.mu.Lock()
		if a.conn == conn {
			a.conn = nil
			a.w = nil
		}
		a.mu.Unlock()
		_ = conn.Close()
		if a.onSubscriberChange != nil {
			a.onSubscriberChange(false)
		}
	}
}

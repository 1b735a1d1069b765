package h264

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

type fakeEncoder struct {
	onReady  encoder.OutputReadyFunc
	started  bool
	stopped  bool
	encoded  int
}

func (f *fakeEncoder) SetOutputReadyCallback(fn encoder.OutputReadyFunc) { f.onReady = fn }
func (f *fakeEncoder) Start() error                                     { f.started = true; return nil }
func (f *fakeEncoder) Stop() error                                      { f.stopped = true; return nil }
func (f *fakeEncoder) Encode(buf camera.FrameBuffer, timestampMicros int64) error {
	f.encoded++
	if f.onReady != nil {
		f.onReady(encoder.Payload{Data: []byte{0x00, 0x00, 0x00, 0x01, 0x65}, TimestampMicros: timestampMicros})
	}
	return nil
}

func TestAdapterForwardsToSubscriberOnly(t *testing.T) {
	enc := &fakeEncoder{}
	var connected []bool
	a := New(enc, func(c bool) { connected = append(connected, c) }, zerolog.Nop())

	if err := a.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer a.Close()

	addr := a.listener.Addr().String()

	a.Send(camera.FrameBuffer{}, 1)
	if enc.encoded != 0 {
		t.Fatal("expected no encode call without a subscriber")
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	a.Send(camera.FrameBuffer{}, 42)
	if enc.encoded != 1 {
		t.Fatalf("expected one encode call, got %d", enc.encoded)
	}

	buf := make([]byte, 5)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("read nal: %v", err)
	}
	if buf[4] != 0x65 {
		t.Fatalf("expected NAL byte 0x65, got %x", buf[4])
	}

	if len(connected) == 0 || !connected[0] {
		t.Fatal("expected onSubscriberChange(true) after connect")
	}
	if !enc.started {
		t.Fatal("expected encoder to be started on Listen")
	}
}

func TestAdapterReplacesPreviousSubscriber(t *testing.T) {
	enc := &fakeEncoder{}
	a := New(enc, nil, zerolog.Nop())
	if err := a.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer a.Close()
	addr := a.listener.Addr().String()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()
	time.Sleep(20 * time.Millisecond)

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	time.Sleep(20 * time.Millisecond)

	first.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := first.Read(buf); err == nil {
		t.Fatal("expected the first connection to be closed once replaced")
	}
}

package mjpeg

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/encoder"
)

type fakeEncoder struct {
	onReady encoder.OutputReadyFunc
	encoded int
}

func (f *fakeEncoder) SetOutputReadyCallback(fn encoder.OutputReadyFunc) { f.onReady = fn }
func (f *fakeEncoder) Encode(buf camera.FrameBuffer, timestampMicros int64) error {
	f.encoded++
	if f.onReady != nil {
		f.onReady(encoder.Payload{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, TimestampMicros: timestampMicros})
	}
	return nil
}

func TestAdapterEmitsMultipartFraming(t *testing.T) {
	enc := &fakeEncoder{}
	var connected []bool
	a := New(enc, func(c bool) { connected = append(connected, c) }, zerolog.Nop())

	if err := a.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer a.Close()

	conn, err := net.Dial("tcp", a.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	r := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(time.Second))

	status, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 200 OK") {
		t.Fatalf("unexpected status line: %q", status)
	}

	time.Sleep(20 * time.Millisecond)
	a.Send(camera.FrameBuffer{}, 7)
	if enc.encoded != 1 {
		t.Fatalf("expected one encode call, got %d", enc.encoded)
	}

	boundary, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if strings.TrimRight(boundary, "\r\n") != "--FRAME" {
		t.Fatalf("expected --FRAME boundary, got %q", boundary)
	}

	contentType, _ := r.ReadString('\n')
	if !strings.HasPrefix(contentType, "Content-Type: image/jpeg") {
		t.Fatalf("unexpected content-type line: %q", contentType)
	}

	contentLength, _ := r.ReadString('\n')
	if !strings.HasPrefix(contentLength, "Content-Length: 4") {
		t.Fatalf("unexpected content-length line: %q", contentLength)
	}

	if len(connected) == 0 || !connected[0] {
		t.Fatal("expected onSubscriberChange(true) after the request line")
	}
}

func TestAdapterSkipsEncodeWithoutSubscriber(t *testing.T) {
	enc := &fakeEncoder{}
	a := New(enc, nil, zerolog.Nop())
	if err := a.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer a.Close()

	a.Send(camera.FrameBuffer{}, 1)
	if enc.encoded != 0 {
		t.Fatal("expected no encode call without a subscriber")
	}
}

package remotecontrol

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/capability"
	"github.com/octowatch/videoservice/v4l2"
)

type fakeSink struct{}

func (fakeSink) ApplyControl(id uint32, value v4l2.CtrlValue) error { return nil }

func newTestTable() *capability.Table {
	return capability.New([]capability.ControlInfo{
		{ID: 1, Name: "Brightness", Type: v4l2.CtrlTypeInt, Min: -1, Max: 1, Default: 0},
	}, fakeSink{}, zerolog.Nop())
}

func dialAndReadLines(t *testing.T, addr string, n int) []map[string]any {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	var msgs []map[string]any
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read line %d: %v", i, err)
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("unmarshal line %d (%q): %v", i, line, err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestConnectSendsCapabilitiesThenCurrentValues(t *testing.T) {
	s := New(newTestTable(), zerolog.Nop())
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer s.Close()

	msgs := dialAndReadLines(t, s.listener.Addr().String(), 2)
	if msgs[0]["type"] != "capabilities" {
		t.Fatalf("expected capabilities first, got %v", msgs[0]["type"])
	}
	if msgs[1]["type"] != "currentValues" {
		t.Fatalf("expected currentValues second, got %v", msgs[1]["type"])
	}
}

func TestSetControlRoundTrip(t *testing.T) {
	s := New(newTestTable(), zerolog.Nop())
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer s.Close()

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	// drain the connect-time capabilities + currentValues messages
	r.ReadString('\n')
	r.ReadString('\n')

	if _, err := conn.Write([]byte(`{"type":"setControl","content":{"control":"Brightness","value":0.2}}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "currentValues" {
		t.Fatalf("expected currentValues, got %v", m["type"])
	}
	content := m["content"].(map[string]any)
	if content["Brightness"] != 0.2 {
		t.Fatalf("expected Brightness=0.2, got %v", content["Brightness"])
	}
}

func TestUnknownControlSendsError(t *testing.T) {
	s := New(newTestTable(), zerolog.Nop())
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer s.Close()

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)
	r.ReadString('\n')
	r.ReadString('\n')

	cmd := `{"type":"setControl","content":{"control":"Nope","value":1}}` + "\n"
	if _, err := conn.Write([]byte(cmd)); err != nil {
		t.Fatalf("write: %v", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "error" {
		t.Fatalf("expected error, got %v", m["type"])
	}
	content := m["content"].(map[string]any)
	msg, _ := content["message"].(string)
	if !strings.Contains(msg, "Nope") {
		t.Fatalf("expected error message to contain original command text, got %q", msg)
	}
}

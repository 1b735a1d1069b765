// Package remotecontrol implements the line-delimited JSON control channel:
// one JSON object per line, exactly one connection at a time, driving a
// capability.Table.
package remotecontrol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/capability"
)

// inboundMessage is the only inbound shape this protocol accepts.
type inboundMessage struct {
	Type    string `json:"type"`
	Content struct {
		Control string  `json:"control"`
		Value   float64 `json:"value"`
	} `json:"content"`
}

type capabilitiesPayload struct {
	Type    string                         `json:"type"`
	Content map[string]capabilityOutbound `json:"content"`
}

type capabilityOutbound struct {
	Type    string  `json:"type"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	Default float64 `json:"default"`
}

type currentValuesPayload struct {
	Type    string             `json:"type"`
	Content map[string]float64 `json:"content"`
}

type errorPayload struct {
	Type    string       `json:"type"`
	Content errorContent `json:"content"`
}

type errorContent struct {
	Message string `json:"message"`
}

// Server owns one capability.Table and a single subscriber connection.
type Server struct {
	table *capability.Table
	log   zerolog.Logger

	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// New wires a Server around table. The server registers itself as table's
// listener as soon as a connection is accepted.
func New(table *capability.Table, log zerolog.Logger) *Server {
	return &Server{table: table, log: log}
}

// Listen starts the TCP accept loop on addr (e.g. ":8889").
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Close stops accepting connections and closes the current subscriber.
func (s *Server) Close() error {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.w = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		previous := s.conn
		s.conn = conn
		s.w = bufio.NewWriter(conn)
		s.mu.Unlock()
		if previous != nil {
			_ = previous.Close()
		}

		s.table.SetListener(s)

		go s.readLoop(conn)
	}
}

func (s *Server) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.w = nil
			}
			s.mu.Unlock()
			return
		}
		s.handleLine(conn, line)
	}
}

func (s *Server) handleLine(conn net.Conn, line string) {
	var msg inboundMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		s.sendError(conn, line)
		return
	}
	if msg.Type != "setControl" {
		s.sendError(conn, line)
		return
	}

	if err := s.table.SetValue(msg.Content.Control, msg.Content.Value, true); err != nil {
		s.log.Warn().Err(err).Str("control", msg.Content.Control).Msg("rejected control mutation")
		s.sendError(conn, line)
	}
}

func (s *Server) sendError(conn net.Conn, originalLine string) {
	s.writeJSON(conn, errorPayload{Type: "error", Content: errorContent{Message: originalLine}})
}

// OnCapabilitiesChanged implements capability.Listener, sent once per
// connection right after it is accepted.
func (s *Server) OnCapabilitiesChanged(all map[string]capability.Capability) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	content := make(map[string]capabilityOutbound, len(all))
	for name, c := range all {
		content[name] = capabilityOutbound{Type: c.Type.String(), Minimum: c.Min, Maximum: c.Max, Default: c.Default}
	}
	s.writeJSON(conn, capabilitiesPayload{Type: "capabilities", Content: content})
}

// OnCurrentValuesChanged implements capability.Listener, sent on connect
// and after every accepted mutation.
func (s *Server) OnCurrentValuesChanged(current map[string]float64) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	s.writeJSON(conn, currentValuesPayload{Type: "currentValues", Content: current})
}

func (s *Server) writeJSON(conn net.Conn, v any) {
	s.mu.Lock()
	w := s.w
	current := s.conn
	s.mu.Unlock()
	if w == nil || current != conn {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal outbound remote-control message")
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return
	}
	if _, err := w.Write(data); err != nil {
		s.log.Warn().Err(err).Msg("remote-control subscriber write failed")
		return
	}
	_ = w.Flush()
}

package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/user/valet/internal/orchestrator"
	"github.com/user/valet/internal/store"
)

const maxLineBytes = 1 << 20

// Server accepts local connections on a Unix socket and relays user input to
// the orchestrator, streaming progress back as it happens.
type Server struct {
	socketPath string
	orch       *orchestrator.Orchestrator
	store      *store.Store
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
}

// NewServer creates an IPC server listening at socketPath once Run is called.
func NewServer(socketPath string, orch *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		orch:       orch,
		store:      st,
		logger:     logger.With("adapter", "ipc"),
		conns:      map[net.Conn]struct{}{},
	}
}

// Run listens until ctx is cancelled. A stale socket file from a previous run
// is removed before binding; the socket is removed again on shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.logger.Info("ipc server started", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.track(conn)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	os.Remove(s.socketPath)
	s.logger.Info("ipc server stopped")
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConnection reads newline-delimited requests. Each connection gets a
// default session so a client can send user_input without create_session
// first. Malformed JSON produces an error response but keeps the connection
// open.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrack(conn)
	s.logger.Debug("ipc client connected")

	defaultSessionID := s.orch.CreateSession()
	enc := json.NewEncoder(conn)
	var encMu sync.Mutex
	send := func(resp *Response) {
		encMu.Lock()
		defer encMu.Unlock()
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("ipc write failed", "error", err)
		}
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			send(&Response{Type: ResponseError, Error: fmt.Sprintf("Invalid message: %v", err)})
			continue
		}
		s.handleRequest(ctx, &req, defaultSessionID, send)
	}
	s.logger.Debug("ipc client disconnected")
}

func (s *Server) handleRequest(ctx context.Context, req *Request, defaultSessionID string, send func(*Response)) {
	switch req.Type {
	case RequestCreateSession:
		send(&Response{Type: ResponseSessionCreated, SessionID: s.orch.CreateSession()})

	case RequestStatus:
		send(&Response{Type: ResponseStatus, Status: "running"})

	case RequestUserInput:
		if req.Text == "" {
			send(&Response{Type: ResponseError, Error: "Missing text in user_input message"})
			return
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = defaultSessionID
		}
		if err := s.store.EnsureSession(sessionID, store.ClientIPC, ""); err != nil {
			s.logger.Error("failed to ensure session", "session_id", sessionID, "error", err)
		}

		resp, err := s.orch.ProcessMessage(ctx, req.Text, sessionID, &orchestrator.Callbacks{
			OnStatus: func(status orchestrator.Status) {
				out := &Response{Type: ResponseProcessingStatus, ProcessingStatus: status.Type}
				if status.Type == orchestrator.StatusExecutingTool {
					out.Tool = status.Tool
				}
				send(out)
			},
			OnChunk: func(chunk string) {
				send(&Response{Type: ResponseChunk, Text: chunk})
			},
		})
		if err != nil {
			send(&Response{Type: ResponseError, Error: err.Error()})
			return
		}
		for _, call := range resp.ToolCalls {
			send(&Response{Type: ResponseToolCall, Name: call.Tool, Input: call.Input})
		}
		send(&Response{Type: ResponseDone})

	default:
		send(&Response{Type: ResponseError, Error: fmt.Sprintf("Unknown message type: %s", req.Type)})
	}
}

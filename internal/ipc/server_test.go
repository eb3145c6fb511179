package ipc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/internal/orchestrator"
	"github.com/user/valet/internal/store"
	"github.com/user/valet/internal/tools"
	"github.com/user/valet/pkg/llm"
)

type fakeProvider struct {
	chunks []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GenerateObject(_ context.Context, _ *llm.ObjectRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"reasoning":"direct","requiresTools":false,"steps":[]}`), nil
}

func (f *fakeProvider) StreamText(_ context.Context, _ *llm.TextRequest, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for _, c := range f.chunks {
		sb.WriteString(c)
		if onDelta != nil {
			onDelta(c)
		}
	}
	return sb.String(), nil
}

func startTestServer(t *testing.T) (string, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "test.sock")

	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	provider := &fakeProvider{chunks: []string{"hi ", "there"}}
	orch := orchestrator.New(config.Default(), provider, tools.NewRegistry(),
		history.NewService(st), st, "fake", slog.Default())
	server := NewServer(socketPath, orch, st, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Run(ctx)

	// Wait for the socket to come up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return socketPath, st
}

func TestStatusRoundTrip(t *testing.T) {
	socketPath, _ := startTestServer(t)
	client, err := Dial(socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != "running" {
		t.Errorf("status = %q, want running", status)
	}
}

func TestCreateSessionReturnsID(t *testing.T) {
	socketPath, _ := startTestServer(t)
	client, err := Dial(socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	id, err := client.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id == "" {
		t.Error("empty session id")
	}
}

func TestUserInputWithoutCreateSession(t *testing.T) {
	socketPath, _ := startTestServer(t)
	client, err := Dial(socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var chunks []string
	err = client.SendUserInput("", "hello", func(c string) { chunks = append(chunks, c) }, nil)
	if err != nil {
		t.Fatalf("user input: %v", err)
	}
	if got := strings.Join(chunks, ""); got != "hi there" {
		t.Errorf("streamed text = %q, want %q", got, "hi there")
	}

	// A second message on the same connection reuses the default session, so
	// the conversation accumulates in one place.
	if err := client.SendUserInput("", "again", nil, nil); err != nil {
		t.Fatalf("second user input: %v", err)
	}
}

func TestMalformedJSONKeepsConnectionOpen(t *testing.T) {
	socketPath, _ := startTestServer(t)
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("this is not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	dec := json.NewDecoder(conn)
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != ResponseError {
		t.Errorf("type = %q, want error", resp.Type)
	}

	// The connection survives: a valid request still works.
	if _, err := conn.Write([]byte(`{"type":"status"}` + "\n")); err != nil {
		t.Fatalf("write after error: %v", err)
	}
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("decode after error: %v", err)
	}
	if resp.Type != ResponseStatus || resp.Status != "running" {
		t.Errorf("response = %+v, want running status", resp)
	}
}

func TestUnknownMessageType(t *testing.T) {
	socketPath, _ := startTestServer(t)
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"type":"bogus"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != ResponseError || !strings.Contains(resp.Error, "bogus") {
		t.Errorf("response = %+v", resp)
	}
}

func TestUserInputRequiresText(t *testing.T) {
	socketPath, _ := startTestServer(t)
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"type":"user_input"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != ResponseError || !strings.Contains(resp.Error, "Missing text") {
		t.Errorf("response = %+v", resp)
	}
}

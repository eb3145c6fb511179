package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client is a synchronous IPC client for CLI commands. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
}

// Dial connects to the daemon's socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Client{conn: conn, scanner: scanner, enc: json.NewEncoder(conn)}, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) send(req *Request) error {
	if err := c.enc.Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}

func (c *Client) receive() (*Response, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed by daemon")
	}
	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// Status performs a status round-trip.
func (c *Client) Status() (string, error) {
	if err := c.send(&Request{Type: RequestStatus}); err != nil {
		return "", err
	}
	resp, err := c.receive()
	if err != nil {
		return "", err
	}
	if resp.Type == ResponseError {
		return "", fmt.Errorf("%s", resp.Error)
	}
	return resp.Status, nil
}

// CreateSession asks the daemon for a fresh session id.
func (c *Client) CreateSession() (string, error) {
	if err := c.send(&Request{Type: RequestCreateSession}); err != nil {
		return "", err
	}
	resp, err := c.receive()
	if err != nil {
		return "", err
	}
	switch resp.Type {
	case ResponseSessionCreated:
		return resp.SessionID, nil
	case ResponseError:
		return "", fmt.Errorf("%s", resp.Error)
	default:
		return "", fmt.Errorf("unexpected response type: %s", resp.Type)
	}
}

// SendUserInput streams one user message through the daemon, invoking the
// callbacks as responses arrive, and returns once done or error is received.
func (c *Client) SendUserInput(sessionID, text string, onChunk func(string), onStatus func(status, tool string)) error {
	if err := c.send(&Request{Type: RequestUserInput, SessionID: sessionID, Text: text}); err != nil {
		return err
	}
	for {
		resp, err := c.receive()
		if err != nil {
			return err
		}
		switch resp.Type {
		case ResponseChunk:
			if onChunk != nil {
				onChunk(resp.Text)
			}
		case ResponseProcessingStatus:
			if onStatus != nil {
				onStatus(resp.ProcessingStatus, resp.Tool)
			}
		case ResponseToolCall:
			// Audit detail for the CLI; chunks already carried the text.
		case ResponseDone:
			return nil
		case ResponseError:
			return fmt.Errorf("%s", resp.Error)
		}
	}
}

// Package ipc serves the local control protocol: newline-delimited JSON
// messages over a Unix domain socket.
package ipc

// Request message types.
const (
	RequestCreateSession = "create_session"
	RequestStatus        = "status"
	RequestUserInput     = "user_input"
)

// Response message types.
const (
	ResponseSessionCreated   = "session_created"
	ResponseStatus           = "status"
	ResponseProcessingStatus = "processing_status"
	ResponseChunk            = "chunk"
	ResponseToolCall         = "tool_call"
	ResponseDone             = "done"
	ResponseError            = "error"
)

// Request is one client-to-daemon message.
type Request struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Response is one daemon-to-client message. Fields are populated per Type.
type Response struct {
	Type             string `json:"type"`
	Text             string `json:"text,omitempty"`
	Name             string `json:"name,omitempty"`
	Input            any    `json:"input,omitempty"`
	SessionID        string `json:"sessionId,omitempty"`
	Status           string `json:"status,omitempty"`
	Error            string `json:"error,omitempty"`
	ProcessingStatus string `json:"processingStatus,omitempty"`
	Tool             string `json:"tool,omitempty"`
}

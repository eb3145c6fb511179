package store

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Session client types.
const (
	ClientCLI      = "cli"
	ClientTelegram = "telegram"
	ClientIPC      = "ipc"
)

// Path permission sets.
const (
	PermRead      = "read"
	PermReadWrite = "read,write"
)

// Session is one conversation thread bound to a client transport.
type Session struct {
	ID           string
	ClientType   string
	ClientID     string
	CreatedAt    int64
	LastActiveAt int64
}

// Message is one immutable history entry. Ordering within a session is by
// (CreatedAt, ID).
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt int64
}

// ToolCall is the append-only audit record of one tool invocation.
// Output, Error, and DurationMS are nullable: a failed registry lookup has
// neither output nor duration.
type ToolCall struct {
	ID         int64
	SessionID  string
	ToolName   string
	Input      string
	Output     *string
	Error      *string
	DurationMS *int64
	CreatedAt  int64
}

// TelegramUser is a paired Telegram account.
type TelegramUser struct {
	ID         int64
	TelegramID int64
	Username   string
	PairedAt   int64
}

// AllowedPath is one allow-listed filesystem root.
type AllowedPath struct {
	ID          int64
	Path        string
	Permissions string
	AddedAt     int64
	AddedBy     string
}

package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleDocument  = "document"
)

// Message is the atomic unit of embeddable content: a chat turn or a chunk
// of an uploaded document. Immutable once created.
type Message struct {
	ID           string `json:"id"`
	ThreadID     string `json:"thread_id"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	AttachmentID string `json:"attachment_id,omitempty"`
	Ctime        int64  `json:"ctime"`
}

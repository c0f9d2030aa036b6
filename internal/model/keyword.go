package model

// MessageKeyword is one derived term of a message's keyword set. Position
// preserves extraction order. Regenerable at any time, never authoritative.
type MessageKeyword struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	Keyword   string `json:"keyword"`
	Position  int    `json:"position"`
	Ctime     int64  `json:"ctime"`
}

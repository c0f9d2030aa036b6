package model

// MessageEmbedding pairs one message with its vector. Vectors are only
// comparable when they share ModelName.
type MessageEmbedding struct {
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	ModelName   string    `json:"model_name"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Ctime       int64     `json:"ctime"`
}

package model

type Attachment struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	ThreadID    string `json:"thread_id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Ctime       int64  `json:"ctime"`
}

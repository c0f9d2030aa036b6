package model

type Thread struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}

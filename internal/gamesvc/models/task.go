package models

// Task is a painting prompt from one of the task corpora.
// AutoCreated marks prompts pulled in from an external corpus rather
// than the curated table.
type Task struct {
	ID          int64  `json:"id"`
	Language    string `json:"language"`
	Text        string `json:"text"`
	Source      string `json:"source,omitempty"`
	AutoCreated bool   `json:"auto_created"`
}

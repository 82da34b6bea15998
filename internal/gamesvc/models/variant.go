package models

import (
	"time"
)

// Variant is any text entry attached to a round: the true prompt
// (authored by the painter), a guesser's submission, or an auto
// generated decoy (AuthorID == nil).
type Variant struct {
	ID         int64     `json:"id"`
	RoundID    int64     `json:"round_id"`
	Text       string    `json:"text"`
	AuthorID   *int64    `json:"author_id,omitempty"`
	TaskID     *int64    `json:"task_id,omitempty"`
	SelectedBy []int64   `json:"selected_by,omitempty"`
	LikedBy    []int64   `json:"liked_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (v *Variant) SelectedByPlayer(playerID int64) bool {
	for _, id := range v.SelectedBy {
		if id == playerID {
			return true
		}
	}
	return false
}

package models

import (
	"time"
)

// Player belongs to exactly one game. Channel holds the socket id of the
// live connection and is empty while the player is disconnected.
type Player struct {
	ID           int64     `json:"id"`
	GameID       int64     `json:"game_id"`
	IsHost       bool      `json:"is_host"`
	Nickname     string    `json:"nickname"`
	Avatar       string    `json:"avatar,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	DrawingColor string    `json:"drawing_color,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

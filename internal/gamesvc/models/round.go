package models

import (
	"time"
)

// Round is one painter's turn. Painting holds the uploaded image
// reference and stays empty until the painter finishes drawing.
type Round struct {
	ID           int64      `json:"id"`
	GameID       int64      `json:"game_id"`
	OrderNumber  int        `json:"order_number"`
	PainterID    int64      `json:"painter_id"`
	PaintingTask string     `json:"painting_task"`
	Painting     string     `json:"painting,omitempty"`
	Stage        RoundStage `json:"stage"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

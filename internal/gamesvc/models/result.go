package models

// Result is the cumulative score of one player in one game. The
// nickname, avatar and color fields are joined in for display.
type Result struct {
	ID             int64  `json:"id"`
	GameID         int64  `json:"game_id"`
	PlayerID       int64  `json:"player_id"`
	Result         int    `json:"result"`
	RoundIncrement int    `json:"round_increment"`
	Nickname       string `json:"nickname,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	DrawingColor   string `json:"drawing_color,omitempty"`
}

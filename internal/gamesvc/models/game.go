package models

import (
	"time"
)

type GameStage string

const (
	GamePregame  GameStage = "pregame"
	GamePreround GameStage = "preround"
	GameRound    GameStage = "round"
	GameFinished GameStage = "finished"
)

type RoundStage string

const (
	RoundNotStarted RoundStage = "not_started"
	RoundWriting    RoundStage = "writing"
	RoundSelecting  RoundStage = "selecting"
	RoundAnswers    RoundStage = "answers"
	RoundResults    RoundStage = "results"
	RoundFinished   RoundStage = "finished"
)

// Game is one play session (a room). The code is unique among
// non-finished games only.
type Game struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Cycles    int       `json:"cycles"`
	Stage     GameStage `json:"stage"`
	IsPaused  bool      `json:"is_paused"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

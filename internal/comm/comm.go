package comm

import (
	"encoding/json"
)

// WSMessage is a client command relayed from the socket service to the
// game service. SocketId is attached by the socket service.
type WSMessage struct {
	Command  string          `json:"command"` // e.g. "connected", "start"
	GameId   int64           `json:"game_id,omitempty"`
	PlayerId int64           `json:"player_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	SocketId string          `json:"socketid,omitempty"`
}

// ServerMessage travels from the game service back to the socket
// service. A non-empty SocketId means unicast; otherwise the message is
// fanned out to every socket joined to GameId.
type ServerMessage struct {
	Command  string          `json:"command"`
	SocketId string          `json:"socketid,omitempty"`
	GameId   int64           `json:"game_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// PlayerStatus is one roster entry inside an Update.
type PlayerStatus struct {
	Avatar   string `json:"avatar,omitempty"`
	Color    string `json:"color,omitempty"`
	Finished bool   `json:"finished"`
}

// Update is the projected view payload sent with command "update".
// Task carries a prompt or painting reference; Variants is set instead
// on the selecting screen.
type Update struct {
	ActiveScreen string                  `json:"active_screen"`
	TaskType     string                  `json:"task_type,omitempty"`
	Task         string                  `json:"task,omitempty"`
	Variants     []string                `json:"variants,omitempty"`
	Players      map[string]PlayerStatus `json:"players,omitempty"`
	Results      []ResultEntry           `json:"results,omitempty"`
}

type ResultEntry struct {
	Nickname       string `json:"nickname"`
	Avatar         string `json:"avatar,omitempty"`
	DrawingColor   string `json:"drawing_color,omitempty"`
	Result         int    `json:"result"`
	RoundIncrement int    `json:"round_increment"`
}

type TimerUpdate struct {
	Stage string `json:"stage"`
	Time  int    `json:"time"`
}

// DisplayAnswer is one entry of the reveal sequence.
type DisplayAnswer struct {
	Text       string   `json:"text"`
	Author     string   `json:"author"`
	Avatar     string   `json:"avatar,omitempty"`
	SelectedBy []string `json:"selected_by"`
	Correct    bool     `json:"correct"`
}

// GameState answers the "connected" command.
type GameState struct {
	IsPaused bool   `json:"is_paused"`
	GameCode string `json:"game_code,omitempty"`
	Stage    string `json:"stage,omitempty"`
}

type InitStage struct {
	Stage string `json:"stage"`
}

type InitButtons struct {
	Buttons []string `json:"buttons"`
}

type Redirect struct {
	GameId int64  `json:"game_id"`
	Code   string `json:"code"`
}

type Notice struct {
	Text string `json:"text,omitempty"`
}

// CommandError reports a rejected client command back to its sender.
type CommandError struct {
	Command string `json:"command"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

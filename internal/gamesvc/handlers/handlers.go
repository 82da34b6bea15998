package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/gamesvc/broker"
	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	svc       *game.Service
	broker    *broker.Broker
}

func NewHandler(svc *game.Service, b *broker.Broker) *Handler {
	return &Handler{svc: svc, broker: b}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

// StatusResponse is the submission endpoint payload: "success" or a
// rejection code with a user-facing message.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) writeStatus(w http.ResponseWriter, code int, rsp StatusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(rsp)
}

// MediaHandler accepts a painting, a written variant or an answer
// selection for a game. Rejections carry a stable status code the web
// client switches on.
func (h *Handler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaType string `json:"media_type"`
		GameId    int64  `json:"game_id"`
		PlayerId  int64  `json:"player_id"`
		Media     string `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, StatusResponse{Status: "bad_request", Message: "malformed payload"})
		return
	}

	err := h.svc.SubmitMedia(r.Context(), req.MediaType, req.GameId, req.PlayerId, req.Media)
	if err != nil {
		var ve *game.ValidationError
		if errors.As(err, &ve) {
			h.writeStatus(w, http.StatusBadRequest, StatusResponse{Status: ve.Code, Message: ve.Message})
			return
		}
		var se *game.StateError
		if errors.As(err, &se) {
			h.writeStatus(w, http.StatusConflict, StatusResponse{Status: se.Kind, Message: se.Message})
			return
		}
		log.Errorf("media submission for game %d player %d: %s", req.GameId, req.PlayerId, err)
		h.writeStatus(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: "internal error"})
		return
	}

	h.broker.Notify(req.GameId)
	h.writeStatus(w, http.StatusOK, StatusResponse{Status: "success"})
}

type gameResponse struct {
	GameId   int64  `json:"game_id"`
	PlayerId int64  `json:"player_id"`
	Code     string `json:"code"`
}

func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname string `json:"nickname"`
		Language string `json:"language"`
		Cycles   int    `json:"cycles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, StatusResponse{Status: "bad_request", Message: "malformed payload"})
		return
	}

	g, host, err := h.svc.CreateGame(r.Context(), req.Nickname, req.Language, req.Cycles, "")
	if err != nil {
		var se *game.StateError
		if errors.As(err, &se) {
			h.writeStatus(w, http.StatusBadRequest, StatusResponse{Status: se.Kind, Message: se.Message})
			return
		}
		log.Errorf("create game: %s", err)
		h.writeStatus(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gameResponse{GameId: g.ID, PlayerId: host.ID, Code: g.Code})
}

func (h *Handler) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, StatusResponse{Status: "bad_request", Message: "malformed payload"})
		return
	}

	g, p, err := h.svc.JoinGame(r.Context(), req.Code, req.Nickname)
	if err != nil {
		var se *game.StateError
		if errors.As(err, &se) {
			h.writeStatus(w, http.StatusConflict, StatusResponse{Status: se.Kind, Message: se.Message})
			return
		}
		log.Errorf("join game %s: %s", req.Code, err)
		h.writeStatus(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gameResponse{GameId: g.ID, PlayerId: p.ID, Code: g.Code})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "game service is running at port " + os.Getenv("GAME_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

package game

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const (
	GameCodeLen = 4
	codeChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Media types accepted by the submission endpoint.
const (
	MediaPainting = "painting"
	MediaVariant  = "variant"
	MediaAnswer   = "answer"
)

// Service implements the room operations on top of the persistence
// collaborator. One instance serves all rooms.
type Service struct {
	store Store
	blobs BlobStore
	tasks TaskRegistry
}

func NewService(store Store, blobs BlobStore, tasks TaskRegistry) *Service {
	return &Service{store: store, blobs: blobs, tasks: tasks}
}

func (s *Service) Store() Store {
	return s.store
}

// generateGameCode returns a short code unique among non-finished games.
func (s *Service) generateGameCode(ctx context.Context) (string, error) {
	for {
		b := make([]byte, GameCodeLen)
		for i := range b {
			b[i] = codeChars[rand.Intn(len(codeChars))]
		}
		code := string(b)
		exists, err := s.store.ActiveCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// CreateGame creates a room and its host. An empty code means generate
// a fresh one.
func (s *Service) CreateGame(ctx context.Context, nickname, language string, cycles int, code string) (*models.Game, *models.Player, error) {
	if _, err := s.tasks.Chain(language); err != nil {
		return nil, nil, &StateError{Kind: "create_game", Message: err.Error()}
	}
	if cycles < 1 {
		cycles = 2
	}
	if code == "" {
		var err error
		if code, err = s.generateGameCode(ctx); err != nil {
			return nil, nil, err
		}
	}

	g := &models.Game{
		Code:     code,
		Language: language,
		Cycles:   cycles,
		Stage:    models.GamePregame,
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, nil, err
	}

	host := &models.Player{GameID: g.ID, IsHost: true, Nickname: nickname}
	if err := s.store.CreatePlayer(ctx, host); err != nil {
		return nil, nil, err
	}
	log.Infof("game %d created with code %s", g.ID, g.Code)
	return g, host, nil
}

// JoinGame adds a player to a pregame room, assigning a drawing color
// unique within it.
func (s *Service) JoinGame(ctx context.Context, code, nickname string) (*models.Game, *models.Player, error) {
	g, err := s.store.GetActiveGameByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, &StateError{Kind: "join", Message: fmt.Sprintf("no active game with code %s", code)}
	}
	if g.Stage != models.GamePregame {
		return nil, nil, &StateError{Kind: "join", Message: "game has already begun"}
	}

	color, err := pickColor(ctx, s.store, g.ID)
	if err != nil {
		return nil, nil, err
	}
	p := &models.Player{
		GameID:       g.ID,
		Nickname:     nickname,
		DrawingColor: color,
	}
	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return nil, nil, err
	}
	return g, p, nil
}

// RestartGame clones the room configuration and roster into a fresh
// room with the same code, falling back to a new code when the old one
// is still held by another active game. The old room is finished first
// so its coordinator stops and its code is free for the clone.
func (s *Service) RestartGame(ctx context.Context, gameID int64) (*models.Game, error) {
	old, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if old.Stage != models.GameFinished {
		if err := s.store.SetGameStage(ctx, gameID, models.GameFinished); err != nil {
			return nil, err
		}
	}
	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var host *models.Player
	for _, p := range players {
		if p.IsHost {
			host = p
			break
		}
	}
	if host == nil {
		return nil, &StateError{Kind: "restart", Message: "game has no host"}
	}

	code := old.Code
	taken, err := s.store.ActiveCodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if taken {
		code = ""
	}
	g, _, err := s.CreateGame(ctx, host.Nickname, old.Language, old.Cycles, code)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.IsHost {
			continue
		}
		if _, _, err := s.JoinGame(ctx, g.Code, p.Nickname); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// StartGame creates the rounds and zeroed results. It requires at least
// two non-host players and assigns painters cyclically: one round per
// (player, cycle) pair.
func (s *Service) StartGame(ctx context.Context, gameID int64) error {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Stage != models.GamePregame {
		return &StateError{Kind: ErrKindStartGame, Message: "game has already started"}
	}
	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return err
	}
	var painters []*models.Player
	for _, p := range players {
		if !p.IsHost {
			painters = append(painters, p)
		}
	}
	if len(painters) < 2 {
		return &StateError{Kind: ErrKindStartGame, Message: "at least two players are required to start the game"}
	}

	chain, err := s.tasks.Chain(g.Language)
	if err != nil {
		return &StateError{Kind: ErrKindStartGame, Message: err.Error()}
	}

	var restrictions Restriction
	order := 0
	for cycle := 0; cycle < g.Cycles; cycle++ {
		for _, painter := range painters {
			var task *models.Task
			task, restrictions, err = chain.Pick(ctx, restrictions)
			if err != nil {
				return err
			}
			if task.ID == 0 {
				if err := s.store.CreateTask(ctx, task); err != nil {
					return err
				}
			}
			round := &models.Round{
				GameID:       gameID,
				OrderNumber:  order,
				PainterID:    painter.ID,
				PaintingTask: task.Text,
				Stage:        models.RoundNotStarted,
			}
			if err := s.store.CreateRound(ctx, round); err != nil {
				return err
			}
			taskID := task.ID
			painterID := painter.ID
			seed := &models.Variant{
				RoundID:  round.ID,
				Text:     task.Text,
				AuthorID: &painterID,
				TaskID:   &taskID,
			}
			if err := s.store.CreateVariant(ctx, seed); err != nil {
				return err
			}
			order++
		}
	}

	for _, p := range painters {
		if err := s.store.CreateResult(ctx, &models.Result{GameID: gameID, PlayerID: p.ID}); err != nil {
			return err
		}
	}
	log.Infof("game %d started with %d rounds", gameID, order)
	return nil
}

// SubmitMedia dispatches a submission-endpoint payload: a painting goes
// to the avatar or the pending round depending on the game stage, a
// variant is a written guess, an answer is a selection.
func (s *Service) SubmitMedia(ctx context.Context, mediaType string, gameID, playerID int64, media string) error {
	switch mediaType {
	case MediaPainting:
		g, err := s.store.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		switch g.Stage {
		case models.GamePregame:
			return s.UploadAvatar(ctx, gameID, playerID, media)
		case models.GamePreround:
			return s.UploadPainting(ctx, gameID, playerID, media)
		default:
			return &StateError{Kind: "media", Message: fmt.Sprintf("no painting expected in stage %q", g.Stage)}
		}
	case MediaVariant:
		return s.ApplyVariant(ctx, gameID, playerID, media)
	case MediaAnswer:
		return s.SelectVariant(ctx, gameID, playerID, media)
	default:
		return &StateError{Kind: "media", Message: fmt.Sprintf("unknown media type %q", mediaType)}
	}
}

// UploadAvatar stores the player's avatar once; a second upload is a
// duplicate.
func (s *Service) UploadAvatar(ctx context.Context, gameID, playerID int64, media string) error {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if p.Avatar != "" {
		return &ValidationError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("%s has already uploaded an avatar", p.Nickname)}
	}
	data, err := decodeMedia(media)
	if err != nil {
		return &ValidationError{Code: ErrCodeInvalidMedia, Message: "malformed image payload"}
	}
	ref, err := s.blobs.SavePNG(s.blobName(ctx, p, nil), data)
	if err != nil {
		return err
	}
	if err := s.store.SetPlayerAvatar(ctx, playerID, ref); err != nil {
		return err
	}
	log.Infof("%s uploaded avatar", p.Nickname)
	return nil
}

// UploadPainting stores the painting for the player's next pending
// round.
func (s *Service) UploadPainting(ctx context.Context, gameID, playerID int64, media string) error {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	round, err := s.store.NextRoundForPainter(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if round == nil {
		return &StateError{Kind: "media", Message: fmt.Sprintf("%s has no pending round to paint", p.Nickname)}
	}
	if round.Painting != "" {
		return &ValidationError{
			Code:    ErrCodeDuplicate,
			Message: fmt.Sprintf("%s has already uploaded a painting for round %d", p.Nickname, round.OrderNumber),
		}
	}
	data, err := decodeMedia(media)
	if err != nil {
		return &ValidationError{Code: ErrCodeInvalidMedia, Message: "malformed image payload"}
	}
	ref, err := s.blobs.SavePNG(s.blobName(ctx, p, round), data)
	if err != nil {
		return err
	}
	if err := s.store.SetRoundPainting(ctx, round.ID, ref); err != nil {
		return err
	}
	log.Infof("%s uploaded painting for round %d", p.Nickname, round.OrderNumber)
	return nil
}

// PopulateDecoys pads the current round's variant pool with authorless
// auto answers, up to one variant per non-host player.
func (s *Service) PopulateDecoys(ctx context.Context, gameID int64) error {
	round, err := s.store.CurrentRound(ctx, gameID)
	if err != nil || round == nil {
		return err
	}
	variants, err := s.store.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}
	cnt, err := playerCount(ctx, s.store, gameID)
	if err != nil {
		return err
	}
	missing := cnt - len(variants)
	if missing <= 0 {
		return nil
	}
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	answers, err := s.store.RandomAutoAnswers(ctx, g.Language, missing)
	if err != nil {
		return err
	}
	log.Infof("generate %d auto answers for round %d", len(answers), round.OrderNumber)
	for _, text := range answers {
		v := &models.Variant{RoundID: round.ID, Text: NormalizeText(text)}
		if err := s.store.CreateVariant(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// ApplyLikes marks the given variants as liked by the player. Own
// variants and repeated likes are skipped.
func (s *Service) ApplyLikes(ctx context.Context, gameID, playerID int64, variantIDs []int64) error {
	round, err := s.store.CurrentRound(ctx, gameID)
	if err != nil || round == nil {
		return err
	}
	variants, err := s.store.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}
	wanted := map[int64]bool{}
	for _, id := range variantIDs {
		wanted[id] = true
	}
	for _, v := range variants {
		if !wanted[v.ID] || (v.AuthorID != nil && *v.AuthorID == playerID) {
			continue
		}
		liked := false
		for _, id := range v.LikedBy {
			if id == playerID {
				liked = true
				break
			}
		}
		if liked {
			continue
		}
		if err := s.store.AddLike(ctx, v.ID, playerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) blobName(ctx context.Context, p *models.Player, round *models.Round) string {
	code := ""
	if g, err := s.store.GetGame(ctx, p.GameID); err == nil {
		code = g.Code
	}
	prefix := fmt.Sprintf("%03d/%d_%s", p.GameID/100, p.GameID, code)
	if round != nil {
		return fmt.Sprintf("%s/%d_%d_%s.png", prefix, round.OrderNumber, p.ID, p.Nickname)
	}
	return fmt.Sprintf("%s/avatar/%d_%s.png", prefix, p.ID, p.Nickname)
}

func decodeMedia(media string) ([]byte, error) {
	media = strings.TrimPrefix(media, "data:image/png;base64,")
	return base64.StdEncoding.DecodeString(media)
}

package game

import (
	"context"
	"fmt"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

// Advance moves the game one step through the stage machine:
//
//	pregame -> preround -> round(writing -> selecting -> answers -> results|finished)
//
// After results either the next round is armed (same cycle) or the game
// returns to preround for the next painter cycle. The last round of the
// game goes from answers straight to finished, skipping results.
//
// Advance is invoked only by the room's coordinator; it is not safe to
// call concurrently for the same game.
func Advance(ctx context.Context, s Store, gameID int64) error {
	g, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	switch g.Stage {
	case models.GamePregame:
		return s.SetGameStage(ctx, gameID, models.GamePreround)

	case models.GamePreround:
		if err := s.SetGameStage(ctx, gameID, models.GameRound); err != nil {
			return err
		}
		return armNextRound(ctx, s, gameID)

	case models.GameRound:
		return advanceRound(ctx, s, g)

	case models.GameFinished:
		return nil

	default:
		return &StateError{Kind: "advance", Message: fmt.Sprintf("game %d is in unknown stage %q", gameID, g.Stage)}
	}
}

func advanceRound(ctx context.Context, s Store, g *models.Game) error {
	r, err := s.CurrentRound(ctx, g.ID)
	if err != nil {
		return err
	}
	if r == nil {
		return &StateError{Kind: "advance", Message: fmt.Sprintf("game %d has no current round", g.ID)}
	}

	switch r.Stage {
	case models.RoundWriting:
		return s.SetRoundStage(ctx, r.ID, models.RoundSelecting)

	case models.RoundSelecting:
		return s.SetRoundStage(ctx, r.ID, models.RoundAnswers)

	case models.RoundAnswers:
		finished, err := s.CountRoundsByStage(ctx, g.ID, models.RoundFinished)
		if err != nil {
			return err
		}
		cnt, err := playerCount(ctx, s, g.ID)
		if err != nil {
			return err
		}
		if finished+1 >= cnt*g.Cycles {
			// last round of the whole game: no results screen, the
			// final standings go out with the closing broadcast
			if err := s.SetRoundStage(ctx, r.ID, models.RoundFinished); err != nil {
				return err
			}
			return s.SetGameStage(ctx, g.ID, models.GameFinished)
		}
		return s.SetRoundStage(ctx, r.ID, models.RoundResults)

	case models.RoundResults:
		if err := s.SetRoundStage(ctx, r.ID, models.RoundFinished); err != nil {
			return err
		}
		finished, err := s.CountRoundsByStage(ctx, g.ID, models.RoundFinished)
		if err != nil {
			return err
		}
		cnt, err := playerCount(ctx, s, g.ID)
		if err != nil {
			return err
		}
		if finished%cnt != 0 {
			return armNextRound(ctx, s, g.ID)
		}
		return s.SetGameStage(ctx, g.ID, models.GamePreround)

	default:
		return &StateError{Kind: "advance", Message: fmt.Sprintf("round %d is in unexpected stage %q", r.ID, r.Stage)}
	}
}

func armNextRound(ctx context.Context, s Store, gameID int64) error {
	next, err := s.NextNotStartedRound(ctx, gameID)
	if err != nil {
		return err
	}
	if next == nil {
		return &StateError{Kind: "advance", Message: fmt.Sprintf("game %d has no round left to start", gameID)}
	}
	return s.SetRoundStage(ctx, next.ID, models.RoundWriting)
}

// playerCount counts the non-host players of a game. The host is a
// roster entry only: it never paints, writes or selects.
func playerCount(ctx context.Context, s Store, gameID int64) (int, error) {
	players, err := s.ListPlayers(ctx, gameID)
	if err != nil {
		return 0, err
	}
	cnt := 0
	for _, p := range players {
		if !p.IsHost {
			cnt++
		}
	}
	return cnt, nil
}

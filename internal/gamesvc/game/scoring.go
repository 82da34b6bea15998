package game

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const (
	// PointsForCorrectAnswer goes to each player who picked the true
	// answer.
	PointsForCorrectAnswer = 1000
	// PointsForCorrectRecognition goes to the painter, per player who
	// recognized the drawing.
	PointsForCorrectRecognition = 1000
	// PointsForRecognition goes to the author of a wrong variant, per
	// player fooled by it.
	PointsForRecognition = 250
)

// ComputeAwards derives the per-player point deltas of one round from
// its variants. Decoys have no author and earn nothing.
func ComputeAwards(variants []*models.Variant, painterID int64) []ScoreAward {
	var awards []ScoreAward
	for _, v := range variants {
		if v.AuthorID == nil {
			continue
		}
		if *v.AuthorID == painterID {
			if n := len(v.SelectedBy); n > 0 {
				awards = append(awards, ScoreAward{PlayerID: painterID, Points: PointsForCorrectRecognition * n})
			}
			for _, sel := range v.SelectedBy {
				awards = append(awards, ScoreAward{PlayerID: sel, Points: PointsForCorrectAnswer})
			}
		} else if n := len(v.SelectedBy); n > 0 {
			awards = append(awards, ScoreAward{PlayerID: *v.AuthorID, Points: PointsForRecognition * n})
		}
	}
	return awards
}

// ScoreRound runs one scoring pass for the game's current round. The
// store resets every round_increment before applying, inside a single
// transaction, so a pass never double-counts.
func ScoreRound(ctx context.Context, s Store, gameID int64) error {
	round, err := s.CurrentRound(ctx, gameID)
	if err != nil {
		return err
	}
	if round == nil {
		return &StateError{Kind: "scoring", Message: "no round is in progress"}
	}
	variants, err := s.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}
	awards := ComputeAwards(variants, round.PainterID)
	if err := s.ApplyScore(ctx, gameID, awards); err != nil {
		return err
	}
	log.Infof("results updated for game %d round %d", gameID, round.OrderNumber)
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const roundColumns = `id, game_id, order_number, painter_id, painting_task, painting, stage, created_at, updated_at`

func scanRound(row pgx.Row) (*models.Round, error) {
	r := &models.Round{}
	err := row.Scan(
		&r.ID,
		&r.GameID,
		&r.OrderNumber,
		&r.PainterID,
		&r.PaintingTask,
		&r.Painting,
		&r.Stage,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}
	return r, nil
}

func (s *Store) CreateRound(ctx context.Context, r *models.Round) error {
	query := `
		INSERT INTO rounds (game_id, order_number, painter_id, painting_task, painting, stage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query,
		r.GameID, r.OrderNumber, r.PainterID, r.PaintingTask, r.Painting, r.Stage,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// CurrentRound relies on the invariant that at most one round per game
// is between not_started and finished.
func (s *Store) CurrentRound(ctx context.Context, gameID int64) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE game_id = $1 AND stage NOT IN ('not_started', 'finished')
		ORDER BY order_number
		LIMIT 1
	`
	return scanRound(s.db.QueryRow(ctx, query, gameID))
}

func (s *Store) NextNotStartedRound(ctx context.Context, gameID int64) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE game_id = $1 AND stage = 'not_started'
		ORDER BY order_number
		LIMIT 1
	`
	return scanRound(s.db.QueryRow(ctx, query, gameID))
}

func (s *Store) NextRoundForPainter(ctx context.Context, gameID, painterID int64) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE game_id = $1 AND painter_id = $2 AND stage = 'not_started'
		ORDER BY order_number
		LIMIT 1
	`
	return scanRound(s.db.QueryRow(ctx, query, gameID, painterID))
}

func (s *Store) CountRoundsByStage(ctx context.Context, gameID int64, stage models.RoundStage) (int, error) {
	var cnt int
	query := `SELECT count(*) FROM rounds WHERE game_id = $1 AND stage = $2`
	if err := s.db.QueryRow(ctx, query, gameID, stage).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}
	return cnt, nil
}

func (s *Store) CountPaintedPending(ctx context.Context, gameID int64) (int, error) {
	var cnt int
	query := `SELECT count(*) FROM rounds WHERE game_id = $1 AND stage = 'not_started' AND painting <> ''`
	if err := s.db.QueryRow(ctx, query, gameID).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("failed to count painted rounds: %w", err)
	}
	return cnt, nil
}

func (s *Store) SetRoundStage(ctx context.Context, roundID int64, stage models.RoundStage) error {
	query := `UPDATE rounds SET stage = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, roundID, stage); err != nil {
		return fmt.Errorf("failed to set round stage: %w", err)
	}
	return nil
}

// SetRoundPainting only fills an empty painting so a repeated upload
// can never replace the original.
func (s *Store) SetRoundPainting(ctx context.Context, roundID int64, painting string) error {
	query := `UPDATE rounds SET painting = $2, updated_at = now() WHERE id = $1 AND painting = ''`
	if _, err := s.db.Exec(ctx, query, roundID, painting); err != nil {
		return fmt.Errorf("failed to set round painting: %w", err)
	}
	return nil
}

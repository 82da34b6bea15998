package store

import (
	"context"
	"fmt"

	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

func (s *Store) CreateResult(ctx context.Context, r *models.Result) error {
	query := `
		INSERT INTO results (game_id, player_id, result, round_increment)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, r.GameID, r.PlayerID, r.Result, r.RoundIncrement).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, gameID int64) ([]*models.Result, error) {
	query := `
		SELECT r.id, r.game_id, r.player_id, r.result, r.round_increment,
		       p.nickname, p.avatar, p.drawing_color
		FROM results r
		JOIN players p ON p.id = r.player_id
		WHERE r.game_id = $1
		ORDER BY r.result DESC, r.id
	`
	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		r := &models.Result{}
		err := rows.Scan(
			&r.ID,
			&r.GameID,
			&r.PlayerID,
			&r.Result,
			&r.RoundIncrement,
			&r.Nickname,
			&r.Avatar,
			&r.DrawingColor,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ApplyScore commits one scoring pass in a single transaction: the
// game's result rows are locked, every round_increment is reset, then
// the awards are applied. Re-running a pass therefore never
// double-counts the increments.
func (s *Store) ApplyScore(ctx context.Context, gameID int64, awards []game.ScoreAward) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin scoring tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM results WHERE game_id = $1 FOR UPDATE`, gameID); err != nil {
		return fmt.Errorf("failed to lock result rows: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE results SET round_increment = 0 WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("failed to reset round increments: %w", err)
	}
	for _, a := range awards {
		_, err := tx.Exec(ctx, `
			UPDATE results
			SET result = result + $3, round_increment = round_increment + $3
			WHERE game_id = $1 AND player_id = $2
		`, gameID, a.PlayerID, a.Points)
		if err != nil {
			return fmt.Errorf("failed to apply award: %w", err)
		}
	}
	return tx.Commit(ctx)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const gameColumns = `id, code, language, cycles, stage, is_paused, created_at, updated_at`

func scanGame(row pgx.Row) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(
		&g.ID,
		&g.Code,
		&g.Language,
		&g.Cycles,
		&g.Stage,
		&g.IsPaused,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	return g, nil
}

func (s *Store) CreateGame(ctx context.Context, g *models.Game) error {
	query := `
		INSERT INTO games (code, language, cycles, stage, is_paused)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query, g.Code, g.Language, g.Cycles, g.Stage, g.IsPaused).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	return scanGame(s.db.QueryRow(ctx, query, id))
}

// GetActiveGameByCode resolves a code among non-finished games only;
// finished games may share codes with newer ones.
func (s *Store) GetActiveGameByCode(ctx context.Context, code string) (*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE code = $1 AND stage <> 'finished'
		LIMIT 1
	`
	return scanGame(s.db.QueryRow(ctx, query, code))
}

func (s *Store) ActiveCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM games WHERE code = $1 AND stage <> 'finished')`
	if err := s.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check game code: %w", err)
	}
	return exists, nil
}

func (s *Store) SetGameStage(ctx context.Context, id int64, stage models.GameStage) error {
	query := `UPDATE games SET stage = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, stage); err != nil {
		return fmt.Errorf("failed to set game stage: %w", err)
	}
	return nil
}

func (s *Store) SetGamePaused(ctx context.Context, id int64, paused bool) error {
	query := `UPDATE games SET is_paused = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, paused); err != nil {
		return fmt.Errorf("failed to set game pause flag: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const playerColumns = `id, game_id, is_host, nickname, avatar, channel, drawing_color, created_at, updated_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID,
		&p.GameID,
		&p.IsHost,
		&p.Nickname,
		&p.Avatar,
		&p.Channel,
		&p.DrawingColor,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return p, nil
}

func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (game_id, is_host, nickname, avatar, channel, drawing_color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query,
		p.GameID, p.IsHost, p.Nickname, p.Avatar, p.Channel, p.DrawingColor,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return scanPlayer(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetPlayerByChannel(ctx context.Context, channel string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE channel = $1 LIMIT 1`
	return scanPlayer(s.db.QueryRow(ctx, query, channel))
}

func (s *Store) ListPlayers(ctx context.Context, gameID int64) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE game_id = $1 ORDER BY id`
	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Store) SetPlayerChannel(ctx context.Context, playerID int64, channel string) error {
	query := `UPDATE players SET channel = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, playerID, channel); err != nil {
		return fmt.Errorf("failed to set player channel: %w", err)
	}
	return nil
}

func (s *Store) SetPlayerNickname(ctx context.Context, playerID int64, nickname string) error {
	query := `UPDATE players SET nickname = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, playerID, nickname); err != nil {
		return fmt.Errorf("failed to set player nickname: %w", err)
	}
	return nil
}

func (s *Store) SetPlayerAvatar(ctx context.Context, playerID int64, avatar string) error {
	query := `UPDATE players SET avatar = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, playerID, avatar); err != nil {
		return fmt.Errorf("failed to set player avatar: %w", err)
	}
	return nil
}

func (s *Store) ColorTaken(ctx context.Context, gameID int64, color string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM players WHERE game_id = $1 AND drawing_color = $2)`
	if err := s.db.QueryRow(ctx, query, gameID, color).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check drawing color: %w", err)
	}
	return taken, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (language, text, source, auto_created)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (language, text) DO UPDATE SET source = EXCLUDED.source
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, t.Language, t.Text, t.Source, t.AutoCreated).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) RandomTask(ctx context.Context, language string, excludeIDs []int64) (*models.Task, error) {
	query := `
		SELECT id, language, text, source, auto_created
		FROM tasks
		WHERE language = $1 AND NOT (id = ANY(COALESCE($2::bigint[], '{}')))
		ORDER BY random()
		LIMIT 1
	`
	t := &models.Task{}
	err := s.db.QueryRow(ctx, query, language, excludeIDs).
		Scan(&t.ID, &t.Language, &t.Text, &t.Source, &t.AutoCreated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pick task: %w", err)
	}
	return t, nil
}

func (s *Store) HasTasks(ctx context.Context, language string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tasks WHERE language = $1)`
	if err := s.db.QueryRow(ctx, query, language).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tasks: %w", err)
	}
	return exists, nil
}

func (s *Store) RandomAutoAnswers(ctx context.Context, language string, n int) ([]string, error) {
	if n < 1 {
		return nil, nil
	}
	query := `
		SELECT text
		FROM auto_answers
		WHERE language = $1
		ORDER BY random()
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, language, n)
	if err != nil {
		return nil, fmt.Errorf("failed to pick auto answers: %w", err)
	}
	defer rows.Close()

	var answers []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		answers = append(answers, text)
	}
	return answers, rows.Err()
}

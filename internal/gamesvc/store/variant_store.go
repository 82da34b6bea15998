package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const variantColumns = `id, round_id, text, author_id, task_id, created_at`

func scanVariant(row pgx.Row) (*models.Variant, error) {
	v := &models.Variant{}
	err := row.Scan(
		&v.ID,
		&v.RoundID,
		&v.Text,
		&v.AuthorID,
		&v.TaskID,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}
	return v, nil
}

func (s *Store) CreateVariant(ctx context.Context, v *models.Variant) error {
	query := `
		INSERT INTO variants (round_id, text, author_id, task_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query, v.RoundID, v.Text, v.AuthorID, v.TaskID).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

// ListVariants returns the round's variants in creation order with
// their selection and like sets attached.
func (s *Store) ListVariants(ctx context.Context, roundID int64) ([]*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE round_id = $1 ORDER BY id`
	rows, err := s.db.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	byID := map[int64]*models.Variant{}
	var variants []*models.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		byID[v.ID] = v
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachSet(ctx, roundID, "variant_selections", byID, func(v *models.Variant, playerID int64) {
		v.SelectedBy = append(v.SelectedBy, playerID)
	}); err != nil {
		return nil, err
	}
	if err := s.attachSet(ctx, roundID, "variant_likes", byID, func(v *models.Variant, playerID int64) {
		v.LikedBy = append(v.LikedBy, playerID)
	}); err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *Store) attachSet(ctx context.Context, roundID int64, table string, byID map[int64]*models.Variant, add func(*models.Variant, int64)) error {
	query := fmt.Sprintf(`
		SELECT vs.variant_id, vs.player_id
		FROM %s vs
		JOIN variants v ON v.id = vs.variant_id
		WHERE v.round_id = $1
		ORDER BY vs.player_id
	`, table)
	rows, err := s.db.Query(ctx, query, roundID)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var variantID, playerID int64
		if err := rows.Scan(&variantID, &playerID); err != nil {
			return err
		}
		if v, ok := byID[variantID]; ok {
			add(v, playerID)
		}
	}
	return rows.Err()
}

func (s *Store) VariantByAuthor(ctx context.Context, roundID, authorID int64) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE round_id = $1 AND author_id = $2 LIMIT 1`
	return scanVariant(s.db.QueryRow(ctx, query, roundID, authorID))
}

func (s *Store) VariantByText(ctx context.Context, roundID int64, text string) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE round_id = $1 AND text = $2 LIMIT 1`
	return scanVariant(s.db.QueryRow(ctx, query, roundID, text))
}

func (s *Store) AddSelection(ctx context.Context, variantID, playerID int64) error {
	query := `
		INSERT INTO variant_selections (variant_id, player_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, variantID, playerID); err != nil {
		return fmt.Errorf("failed to add selection: %w", err)
	}
	return nil
}

func (s *Store) HasSelected(ctx context.Context, roundID, playerID int64) (bool, error) {
	var selected bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM variant_selections vs
			JOIN variants v ON v.id = vs.variant_id
			WHERE v.round_id = $1 AND vs.player_id = $2
		)
	`
	if err := s.db.QueryRow(ctx, query, roundID, playerID).Scan(&selected); err != nil {
		return false, fmt.Errorf("failed to check selection: %w", err)
	}
	return selected, nil
}

func (s *Store) CountSelections(ctx context.Context, roundID int64) (int, error) {
	var cnt int
	query := `
		SELECT count(*)
		FROM variant_selections vs
		JOIN variants v ON v.id = vs.variant_id
		WHERE v.round_id = $1
	`
	if err := s.db.QueryRow(ctx, query, roundID).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("failed to count selections: %w", err)
	}
	return cnt, nil
}

func (s *Store) AddLike(ctx context.Context, variantID, playerID int64) error {
	query := `
		INSERT INTO variant_likes (variant_id, player_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, variantID, playerID); err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}

// Package store implements the persistence collaborator on Postgres.
// All mutation goes through conditional single-statement updates or
// short transactions with explicit row locks; nothing is cached in
// process memory.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
)

type Store struct {
	db *pgxpool.Pool
}

var _ game.Store = (*Store)(nil)

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

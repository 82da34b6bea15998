package game

import (
	"context"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

// ScoreAward is one point delta produced by a scoring pass.
type ScoreAward struct {
	PlayerID int64
	Points   int
}

// Store is the persistence collaborator. All room state lives behind it;
// the engine never caches authoritative state longer than one tick.
type Store interface {
	// Games
	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id int64) (*models.Game, error)
	GetActiveGameByCode(ctx context.Context, code string) (*models.Game, error)
	ActiveCodeExists(ctx context.Context, code string) (bool, error)
	SetGameStage(ctx context.Context, id int64, stage models.GameStage) error
	SetGamePaused(ctx context.Context, id int64, paused bool) error

	// Players
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id int64) (*models.Player, error)
	GetPlayerByChannel(ctx context.Context, channel string) (*models.Player, error)
	ListPlayers(ctx context.Context, gameID int64) ([]*models.Player, error)
	SetPlayerChannel(ctx context.Context, playerID int64, channel string) error
	SetPlayerNickname(ctx context.Context, playerID int64, nickname string) error
	SetPlayerAvatar(ctx context.Context, playerID int64, avatar string) error
	ColorTaken(ctx context.Context, gameID int64, color string) (bool, error)

	// Rounds
	CreateRound(ctx context.Context, r *models.Round) error
	// CurrentRound returns the single round that is neither not_started
	// nor finished, or nil if there is none.
	CurrentRound(ctx context.Context, gameID int64) (*models.Round, error)
	NextNotStartedRound(ctx context.Context, gameID int64) (*models.Round, error)
	NextRoundForPainter(ctx context.Context, gameID, painterID int64) (*models.Round, error)
	CountRoundsByStage(ctx context.Context, gameID int64, stage models.RoundStage) (int, error)
	// CountPaintedPending counts not_started rounds whose painting has
	// already been uploaded.
	CountPaintedPending(ctx context.Context, gameID int64) (int, error)
	SetRoundStage(ctx context.Context, roundID int64, stage models.RoundStage) error
	SetRoundPainting(ctx context.Context, roundID int64, painting string) error

	// Variants
	CreateVariant(ctx context.Context, v *models.Variant) error
	ListVariants(ctx context.Context, roundID int64) ([]*models.Variant, error)
	VariantByAuthor(ctx context.Context, roundID, authorID int64) (*models.Variant, error)
	VariantByText(ctx context.Context, roundID int64, text string) (*models.Variant, error)
	AddSelection(ctx context.Context, variantID, playerID int64) error
	HasSelected(ctx context.Context, roundID, playerID int64) (bool, error)
	CountSelections(ctx context.Context, roundID int64) (int, error)
	AddLike(ctx context.Context, variantID, playerID int64) error

	// Results
	CreateResult(ctx context.Context, r *models.Result) error
	ListResults(ctx context.Context, gameID int64) ([]*models.Result, error)
	// ApplyScore resets every round_increment of the game to zero and
	// applies the awards to both result and round_increment in a single
	// transaction under exclusive row locks.
	ApplyScore(ctx context.Context, gameID int64, awards []ScoreAward) error

	// Task corpora
	RandomTask(ctx context.Context, language string, excludeIDs []int64) (*models.Task, error)
	HasTasks(ctx context.Context, language string) (bool, error)
	CreateTask(ctx context.Context, t *models.Task) error
	RandomAutoAnswers(ctx context.Context, language string, n int) ([]string, error)
}

// Transport is the pub/sub collaborator used to reach connected
// clients. Channel is a socket id registered on the player row.
type Transport interface {
	Send(channel string, msg *comm.ServerMessage) error
	Broadcast(gameID int64, msg *comm.ServerMessage) error
}

// BlobStore keeps uploaded paintings and avatars and returns a
// reference usable by clients.
type BlobStore interface {
	SavePNG(name string, data []byte) (string, error)
}

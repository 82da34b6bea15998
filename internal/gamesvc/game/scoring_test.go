package game_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
	"github.com/sketchroom/sketch-services/internal/gamesvc/store/memory"
)

func ptr(id int64) *int64 { return &id }

func TestComputeAwards(t *testing.T) {
	painter := int64(1)
	guesserA := int64(2)
	guesserB := int64(3)
	decoyAuthor := (*int64)(nil)

	variants := []*models.Variant{
		// correct answer, found by guesser A
		{AuthorID: ptr(painter), SelectedBy: []int64{guesserA}},
		// B's wrong variant fooled nobody
		{AuthorID: ptr(guesserB), SelectedBy: nil},
		// decoy fooled guesser B: nobody is paid for it
		{AuthorID: decoyAuthor, SelectedBy: []int64{guesserB}},
	}

	awards := game.ComputeAwards(variants, painter)

	points := map[int64]int{}
	for _, a := range awards {
		points[a.PlayerID] += a.Points
	}
	assert.Equal(t, game.PointsForCorrectRecognition, points[painter], "painter paid per recognizer")
	assert.Equal(t, game.PointsForCorrectAnswer, points[guesserA])
	assert.Zero(t, points[guesserB])
}

func TestComputeAwardsFooling(t *testing.T) {
	painter := int64(1)
	author := int64(2)

	variants := []*models.Variant{
		{AuthorID: ptr(painter), SelectedBy: nil},
		// author's wrong variant fooled two players
		{AuthorID: ptr(author), SelectedBy: []int64{3, 4}},
	}

	awards := game.ComputeAwards(variants, painter)
	require.Len(t, awards, 1)
	assert.Equal(t, author, awards[0].PlayerID)
	assert.Equal(t, 2*game.PointsForRecognition, awards[0].Points)
}

func TestComputeAwardsNobodyCorrect(t *testing.T) {
	variants := []*models.Variant{
		{AuthorID: ptr(1), SelectedBy: nil},
	}
	assert.Empty(t, game.ComputeAwards(variants, 1))
}

// ApplyScore resets round increments before applying, so re-running a
// scoring pass never double-counts.
func TestApplyScoreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	g := &models.Game{Code: "AAAA", Stage: models.GameRound, Cycles: 1}
	require.NoError(t, store.CreateGame(ctx, g))
	p := &models.Player{GameID: g.ID, Nickname: "alice"}
	require.NoError(t, store.CreatePlayer(ctx, p))
	require.NoError(t, store.CreateResult(ctx, &models.Result{GameID: g.ID, PlayerID: p.ID}))

	awards := []game.ScoreAward{{PlayerID: p.ID, Points: 1250}}
	require.NoError(t, store.ApplyScore(ctx, g.ID, awards))
	require.NoError(t, store.ApplyScore(ctx, g.ID, awards))

	results, err := store.ListResults(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2500, results[0].Result, "total accumulates")
	assert.Equal(t, 1250, results[0].RoundIncrement, "increment is per pass")
}

func TestScoreRound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	g := &models.Game{Code: "BBBB", Stage: models.GameRound, Cycles: 1}
	require.NoError(t, store.CreateGame(ctx, g))

	painter := &models.Player{GameID: g.ID, Nickname: "painter"}
	guesser := &models.Player{GameID: g.ID, Nickname: "guesser"}
	require.NoError(t, store.CreatePlayer(ctx, painter))
	require.NoError(t, store.CreatePlayer(ctx, guesser))
	for _, p := range []*models.Player{painter, guesser} {
		require.NoError(t, store.CreateResult(ctx, &models.Result{GameID: g.ID, PlayerID: p.ID}))
	}

	round := &models.Round{GameID: g.ID, PainterID: painter.ID, Stage: models.RoundAnswers}
	require.NoError(t, store.CreateRound(ctx, round))
	correct := &models.Variant{RoundID: round.ID, Text: "the answer", AuthorID: &painter.ID}
	require.NoError(t, store.CreateVariant(ctx, correct))
	require.NoError(t, store.AddSelection(ctx, correct.ID, guesser.ID))

	require.NoError(t, game.ScoreRound(ctx, store, g.ID))

	results, err := store.ListResults(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 1000, r.Result)
		assert.Equal(t, 1000, r.RoundIncrement)
	}
}

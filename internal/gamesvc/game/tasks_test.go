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

func TestRegistryExcludesEmptyLanguages(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, &models.Task{Language: "en", Text: "a cat"}))

	reg, err := game.NewTaskRegistry(ctx, store, []string{"en", "ru"}, map[string][]string{
		"de": {"ein hund"}, // language not requested
	})
	require.NoError(t, err)

	_, err = reg.Chain("en")
	assert.NoError(t, err)
	_, err = reg.Chain("ru")
	assert.Error(t, err, "no corpus has russian content")
	_, err = reg.Chain("de")
	assert.Error(t, err)
}

func TestStoredTasksNeverRepeatWithinSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	texts := []string{"a cat", "a dog", "a house"}
	for _, text := range texts {
		require.NoError(t, store.CreateTask(ctx, &models.Task{Language: "en", Text: text}))
	}
	reg, err := game.NewTaskRegistry(ctx, store, []string{"en"}, nil)
	require.NoError(t, err)
	chain, err := reg.Chain("en")
	require.NoError(t, err)

	var r game.Restriction
	seen := map[string]bool{}
	for range texts {
		var task *models.Task
		task, r, err = chain.Pick(ctx, r)
		require.NoError(t, err)
		assert.False(t, seen[task.Text], "task %q repeated", task.Text)
		seen[task.Text] = true
	}

	// corpus exhausted
	_, _, err = chain.Pick(ctx, r)
	assert.Error(t, err)
}

func TestWordListTasksAreAutoCreated(t *testing.T) {
	ctx := context.Background()
	p := game.NewWordListProvider("en", "animals", []string{"A Fox"})

	task, r, err := p.GetTask(ctx, game.Restriction{})
	require.NoError(t, err)
	assert.Equal(t, "a fox", task.Text, "normalized")
	assert.True(t, task.AutoCreated)
	assert.Equal(t, "animals", task.Source)
	assert.Zero(t, task.ID, "not persisted yet")

	// the phrase is folded into the restriction
	_, _, err = p.GetTask(ctx, r)
	assert.Error(t, err)
}

// the same phrase may exist once per language; re-creating it within a
// language reuses the existing row
func TestSameTaskTextAcrossLanguages(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	en := &models.Task{Language: "en", Text: "taxi", Source: "vehicles"}
	require.NoError(t, store.CreateTask(ctx, en))

	ru := &models.Task{Language: "ru", Text: "taxi"}
	require.NoError(t, store.CreateTask(ctx, ru))
	assert.NotEqual(t, en.ID, ru.ID, "languages keep separate corpora")

	again := &models.Task{Language: "en", Text: "taxi", Source: "city"}
	require.NoError(t, store.CreateTask(ctx, again))
	assert.Equal(t, en.ID, again.ID)
}

func TestChainMixesProviders(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, &models.Task{Language: "en", Text: "stored prompt"}))

	reg, err := game.NewTaskRegistry(ctx, store, []string{"en"}, map[string][]string{
		"en": {"listed prompt"},
	})
	require.NoError(t, err)
	chain, err := reg.Chain("en")
	require.NoError(t, err)

	// either corpus may serve the pick, both prompts are eligible
	task, _, err := chain.Pick(ctx, game.Restriction{})
	require.NoError(t, err)
	assert.Contains(t, []string{"stored prompt", "listed prompt"}, task.Text)
}

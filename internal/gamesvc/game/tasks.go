package game

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

// Restriction accumulates what the task chain must not hand out again
// within one host session: task ids already used and raw phrases
// already seen. Each provider folds its pick back into the restriction
// it returns.
type Restriction struct {
	IDs   []int64
	Texts []string
}

func (r Restriction) withID(id int64) Restriction {
	return Restriction{IDs: append(append([]int64{}, r.IDs...), id), Texts: r.Texts}
}

func (r Restriction) withText(text string) Restriction {
	return Restriction{IDs: r.IDs, Texts: append(append([]string{}, r.Texts...), text)}
}

func (r Restriction) hasText(text string) bool {
	for _, t := range r.Texts {
		if t == text {
			return true
		}
	}
	return false
}

// TaskProvider produces one painting prompt honoring the accumulated
// restrictions.
type TaskProvider interface {
	GetTask(ctx context.Context, r Restriction) (*models.Task, Restriction, error)
}

type weightedProvider struct {
	provider TaskProvider
	weight   int
}

// TaskChain picks among its providers by weight. Providers without
// eligible content for the language are excluded at construction, not
// at selection time.
type TaskChain struct {
	providers []weightedProvider
	total     int
}

func (c *TaskChain) add(p TaskProvider, weight int) {
	c.providers = append(c.providers, weightedProvider{provider: p, weight: weight})
	c.total += weight
}

func (c *TaskChain) Pick(ctx context.Context, r Restriction) (*models.Task, Restriction, error) {
	if len(c.providers) == 0 {
		return nil, r, fmt.Errorf("no task providers available")
	}
	n := rand.Intn(c.total)
	for _, wp := range c.providers {
		n -= wp.weight
		if n < 0 {
			return wp.provider.GetTask(ctx, r)
		}
	}
	return c.providers[len(c.providers)-1].provider.GetTask(ctx, r)
}

// StoredTaskProvider serves prompts from the curated tasks table.
type StoredTaskProvider struct {
	store    Store
	language string
}

func (p *StoredTaskProvider) GetTask(ctx context.Context, r Restriction) (*models.Task, Restriction, error) {
	task, err := p.store.RandomTask(ctx, p.language, r.IDs)
	if err != nil {
		return nil, r, err
	}
	if task == nil {
		return nil, r, fmt.Errorf("no stored task left for language %q", p.language)
	}
	task.Text = NormalizeText(task.Text)
	return task, r.withID(task.ID), nil
}

// WordListProvider serves prompts from an external corpus snapshot
// loaded at process start.
type WordListProvider struct {
	language string
	source   string
	words    []string
}

func NewWordListProvider(language, source string, words []string) *WordListProvider {
	return &WordListProvider{language: language, source: source, words: words}
}

func (p *WordListProvider) GetTask(ctx context.Context, r Restriction) (*models.Task, Restriction, error) {
	var eligible []string
	for _, w := range p.words {
		w = NormalizeText(w)
		if w != "" && !r.hasText(w) {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return nil, r, fmt.Errorf("word list %q has no phrase left for language %q", p.source, p.language)
	}
	text := eligible[rand.Intn(len(eligible))]
	task := &models.Task{
		Language:    p.language,
		Text:        text,
		Source:      p.source,
		AutoCreated: true,
	}
	return task, r.withText(text), nil
}

// TaskRegistry holds one chain per language, constructed once at
// process start and shared by reference.
type TaskRegistry map[string]*TaskChain

// NewTaskRegistry builds a chain for every language that has at least
// one provider with eligible content. Stored tasks weigh 5, external
// word lists 2, mirroring how often each corpus should appear.
func NewTaskRegistry(ctx context.Context, s Store, languages []string, wordlists map[string][]string) (TaskRegistry, error) {
	reg := TaskRegistry{}
	for _, lang := range languages {
		chain := &TaskChain{}
		ok, err := s.HasTasks(ctx, lang)
		if err != nil {
			return nil, err
		}
		if ok {
			chain.add(&StoredTaskProvider{store: s, language: lang}, 5)
		}
		if words := wordlists[lang]; len(words) > 0 {
			chain.add(NewWordListProvider(lang, "wordlist", words), 2)
		}
		if len(chain.providers) > 0 {
			reg[lang] = chain
		}
	}
	return reg, nil
}

func (r TaskRegistry) Chain(language string) (*TaskChain, error) {
	chain, ok := r[language]
	if !ok {
		return nil, fmt.Errorf("no task providers for language %q", language)
	}
	return chain, nil
}

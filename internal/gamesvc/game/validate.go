package game

import (
	"context"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const (
	// MinSimilarityRank rejects a submission whose fuzzy ratio against
	// any existing variant of the round reaches this value.
	MinSimilarityRank = 92
	MaxVariantLen     = 100
)

// NormalizeText prepares a submission for storage and comparison:
// trimmed, lowercased, truncated to MaxVariantLen runes.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	runes := []rune(s)
	if len(runes) > MaxVariantLen {
		runes = runes[:MaxVariantLen]
	}
	return string(runes)
}

// validAlphabet requires every word to be drawn from a single script
// family: a word may be Latin or Cyrillic but not a mix of both.
// Digits and punctuation are allowed anywhere.
func validAlphabet(s string) bool {
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		var latin, cyrillic bool
		for _, r := range word {
			switch {
			case unicode.Is(unicode.Latin, r):
				latin = true
			case unicode.Is(unicode.Cyrillic, r):
				cyrillic = true
			case unicode.IsDigit(r):
			default:
				return false
			}
		}
		if latin && cyrillic {
			return false
		}
	}
	return true
}

// ApplyVariant validates a guess and stores it as a new variant of the
// current round. Resubmission by the same author is a no-op.
func (s *Service) ApplyVariant(ctx context.Context, gameID, playerID int64, text string) error {
	round, err := s.store.CurrentRound(ctx, gameID)
	if err != nil {
		return err
	}
	if round == nil {
		return &StateError{Kind: "variant", Message: "no round is in progress"}
	}

	text = NormalizeText(text)
	if text == "" || !validAlphabet(text) {
		log.Warnf("variant %q failed the alphabet check", text)
		return &ValidationError{
			Code:    ErrCodeInvalidAlphabet,
			Message: "your variant contains words with letters from mixed alphabets",
		}
	}

	existing, err := s.store.VariantByAuthor(ctx, round.ID, playerID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Infof("player %d has already applied a variant for round %d", playerID, round.ID)
		return nil
	}

	variants, err := s.store.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}
	for _, v := range variants {
		ratio := fuzzy.Ratio(text, v.Text)
		log.Debugf("compare %q with %q: ratio is %d", text, v.Text, ratio)
		if ratio >= MinSimilarityRank {
			return &ValidationError{
				Code:    ErrCodeDuplicate,
				Message: "your variant is too close to someone's variant or to the correct answer",
			}
		}
	}

	author := playerID
	return s.store.CreateVariant(ctx, &models.Variant{
		RoundID:  round.ID,
		Text:     text,
		AuthorID: &author,
	})
}

// SelectVariant records which variant the player picked as their guess.
func (s *Service) SelectVariant(ctx context.Context, gameID, playerID int64, answer string) error {
	round, err := s.store.CurrentRound(ctx, gameID)
	if err != nil {
		return err
	}
	if round == nil {
		return &StateError{Kind: "answer", Message: "no round is in progress"}
	}

	selected, err := s.store.HasSelected(ctx, round.ID, playerID)
	if err != nil {
		return err
	}
	if selected {
		return &ValidationError{Code: ErrCodeDuplicate, Message: "you have already selected a variant"}
	}

	variant, err := s.store.VariantByText(ctx, round.ID, NormalizeText(answer))
	if err != nil {
		return err
	}
	if variant == nil {
		return &StateError{Kind: "answer", Message: "no such variant in this round"}
	}
	return s.store.AddSelection(ctx, variant.ID, playerID)
}

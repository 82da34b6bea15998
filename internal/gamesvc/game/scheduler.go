package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

// StageTimes configures the countdowns. Tests shrink Tick to run the
// loop in milliseconds.
type StageTimes struct {
	Preround     time.Duration
	Writing      time.Duration
	Selecting    time.Duration
	Results      time.Duration
	ForOneSelect time.Duration
	MediaGrace   time.Duration
	Tick         time.Duration
	UpdateDelay  time.Duration
}

func DefaultStageTimes() StageTimes {
	return StageTimes{
		Preround:     120 * time.Second,
		Writing:      40 * time.Second,
		Selecting:    30 * time.Second,
		Results:      10 * time.Second,
		ForOneSelect: 3 * time.Second,
		MediaGrace:   3 * time.Second,
		Tick:         time.Second,
		UpdateDelay:  200 * time.Millisecond,
	}
}

// Coordinator drives one room through its stages: countdowns,
// completion predicates, the reveal sequence, scoring and stage
// advancement. Exactly one coordinator runs per active room and it is
// the only caller of Advance for that room.
type Coordinator struct {
	svc       *Service
	store     Store
	transport Transport
	projector *Projector
	times     StageTimes
	gameID    int64
}

func NewCoordinator(svc *Service, transport Transport, projector *Projector, times StageTimes, gameID int64) *Coordinator {
	return &Coordinator{
		svc:       svc,
		store:     svc.Store(),
		transport: transport,
		projector: projector,
		times:     times,
		gameID:    gameID,
	}
}

// Run loops until the game is finished or ctx is cancelled.
// Cancellation is a normal termination, not an error.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Infof("start processing game %d", c.gameID)
	err := c.run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *Coordinator) run(ctx context.Context) error {
	for {
		g, err := c.store.GetGame(ctx, c.gameID)
		if err != nil {
			return err
		}
		if g.Stage == models.GameFinished {
			break
		}

		switch g.Stage {
		case models.GamePregame:
			// nothing to schedule before the host starts the game
			return nil

		case models.GamePreround:
			log.Infof("game %d: start preround", c.gameID)
			if err := c.runCountdown(ctx, "preround", c.times.Preround, c.preroundDone, true); err != nil {
				return err
			}

		case models.GameRound:
			round, err := c.store.CurrentRound(ctx, c.gameID)
			if err != nil {
				return err
			}
			if round == nil {
				return &StateError{Kind: "scheduler", Message: "round stage without a current round"}
			}
			if round.Painting == "" {
				// painting upload still in flight; idle instead of
				// skipping the writing stage
				if err := sleep(ctx, c.times.Tick); err != nil {
					return err
				}
				continue
			}
			if err := c.processRound(ctx, round); err != nil {
				return err
			}
		}

		if err := Advance(ctx, c.store, c.gameID); err != nil {
			return err
		}
	}

	// closing pass so every client sees the final standings
	if err := c.projector.BroadcastOnce(ctx); err != nil {
		log.Errorf("final broadcast for game %d: %v", c.gameID, err)
	}
	log.Infof("game %d is finished", c.gameID)
	return nil
}

func (c *Coordinator) processRound(ctx context.Context, round *models.Round) error {
	switch round.Stage {
	case models.RoundWriting:
		log.Infof("game %d: start writing", c.gameID)
		if err := c.runCountdown(ctx, "writing", c.times.Writing, c.writingDone, true); err != nil {
			return err
		}
		return c.svc.PopulateDecoys(ctx, c.gameID)

	case models.RoundSelecting:
		log.Infof("game %d: start selecting", c.gameID)
		return c.runCountdown(ctx, "selecting", c.times.Selecting, c.selectingDone, false)

	case models.RoundAnswers:
		log.Infof("game %d: show answers", c.gameID)
		if err := c.revealAnswers(ctx, round); err != nil {
			return err
		}
		return ScoreRound(ctx, c.store, c.gameID)

	case models.RoundResults:
		log.Infof("game %d: show results", c.gameID)
		return c.runCountdown(ctx, "results", c.times.Results, nil, false)
	}
	return nil
}

// runCountdown broadcasts the remaining time every tick and ends early
// when the completion predicate fires. While the game is paused no time
// elapses and the predicate is not polled. When grace is set, the
// countdown is followed by a bounded wait for media uploads to land.
func (c *Coordinator) runCountdown(ctx context.Context, stage string, dur time.Duration, done func(context.Context) (bool, error), grace bool) error {
	remaining := int(dur / c.times.Tick)
	for remaining >= 0 {
		paused, err := c.isPaused(ctx)
		if err != nil {
			return err
		}
		if paused {
			if err := sleep(ctx, c.times.Tick); err != nil {
				return err
			}
			continue
		}
		c.broadcastTimer(stage, remaining)
		if err := sleep(ctx, c.times.Tick); err != nil {
			return err
		}
		remaining--
		if done != nil {
			ok, err := done(ctx)
			if err != nil {
				return err
			}
			if ok {
				log.Infof("game %d: %s completed before time exceeded", c.gameID, stage)
				break
			}
		}
	}

	if grace && done != nil {
		// a pause freezes the grace window too: neither budget nor the
		// predicate moves the stage while paused
		for i := int(c.times.MediaGrace / c.times.Tick); i > 0; {
			paused, err := c.isPaused(ctx)
			if err != nil {
				return err
			}
			if paused {
				if err := sleep(ctx, c.times.Tick); err != nil {
					return err
				}
				continue
			}
			ok, err := done(ctx)
			if err != nil {
				return err
			}
			if ok {
				break
			}
			if err := sleep(ctx, c.times.Tick); err != nil {
				return err
			}
			i--
		}
	}
	log.Infof("game %d: %s is over", c.gameID, stage)
	return nil
}

// preroundDone: every painter has uploaded the painting for their
// pending round.
func (c *Coordinator) preroundDone(ctx context.Context) (bool, error) {
	cnt, err := playerCount(ctx, c.store, c.gameID)
	if err != nil {
		return false, err
	}
	painted, err := c.store.CountPaintedPending(ctx, c.gameID)
	if err != nil {
		return false, err
	}
	return painted == cnt, nil
}

// writingDone: every player has a variant in the current round (the
// painter's is the seed variant created at start).
func (c *Coordinator) writingDone(ctx context.Context) (bool, error) {
	round, err := c.store.CurrentRound(ctx, c.gameID)
	if err != nil || round == nil {
		return false, err
	}
	variants, err := c.store.ListVariants(ctx, round.ID)
	if err != nil {
		return false, err
	}
	cnt, err := playerCount(ctx, c.store, c.gameID)
	if err != nil {
		return false, err
	}
	return len(variants) >= cnt, nil
}

// selectingDone: every non-painter has selected a variant.
func (c *Coordinator) selectingDone(ctx context.Context) (bool, error) {
	round, err := c.store.CurrentRound(ctx, c.gameID)
	if err != nil || round == nil {
		return false, err
	}
	selections, err := c.store.CountSelections(ctx, round.ID)
	if err != nil {
		return false, err
	}
	cnt, err := playerCount(ctx, c.store, c.gameID)
	if err != nil {
		return false, err
	}
	return selections >= cnt-1, nil
}

// revealAnswers shows every selected variant plus the correct answer,
// wrong guesses first, holding each on screen proportionally to how
// many players it fooled.
func (c *Coordinator) revealAnswers(ctx context.Context, round *models.Round) error {
	players, err := c.store.ListPlayers(ctx, c.gameID)
	if err != nil {
		return err
	}
	byID := map[int64]*models.Player{}
	for _, p := range players {
		byID[p.ID] = p
	}
	variants, err := c.store.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}

	var reveal []*models.Variant
	var correct *models.Variant
	for _, v := range variants {
		if v.AuthorID != nil && *v.AuthorID == round.PainterID {
			correct = v
		} else if len(v.SelectedBy) > 0 {
			reveal = append(reveal, v)
		}
	}
	if correct != nil {
		reveal = append(reveal, correct)
	}

	for _, v := range reveal {
		answer := comm.DisplayAnswer{
			Text:       v.Text,
			Author:     "Random answer",
			SelectedBy: []string{},
			Correct:    correct != nil && v.ID == correct.ID,
		}
		if v.AuthorID != nil {
			if p, ok := byID[*v.AuthorID]; ok {
				answer.Author = p.Nickname
				answer.Avatar = p.Avatar
			}
		}
		for _, id := range v.SelectedBy {
			if p, ok := byID[id]; ok {
				answer.SelectedBy = append(answer.SelectedBy, p.Nickname)
			}
		}
		c.broadcast("display_answer", answer)

		holds := len(v.SelectedBy)
		if holds < 1 {
			holds = 1
		}
		for i := 0; i < holds; i++ {
			if err := c.pausableSleep(ctx, c.times.ForOneSelect); err != nil {
				return err
			}
		}
	}
	return nil
}

// pausableSleep waits d of unpaused time.
func (c *Coordinator) pausableSleep(ctx context.Context, d time.Duration) error {
	for remaining := int(d / c.times.Tick); remaining > 0; {
		paused, err := c.isPaused(ctx)
		if err != nil {
			return err
		}
		if err := sleep(ctx, c.times.Tick); err != nil {
			return err
		}
		if !paused {
			remaining--
		}
	}
	return nil
}

func (c *Coordinator) isPaused(ctx context.Context) (bool, error) {
	g, err := c.store.GetGame(ctx, c.gameID)
	if err != nil {
		return false, err
	}
	return g.IsPaused, nil
}

func (c *Coordinator) broadcastTimer(stage string, remaining int) {
	c.broadcast("timer", comm.TimerUpdate{Stage: stage, Time: remaining})
}

func (c *Coordinator) broadcast(command string, payload any) {
	msg, err := Message(command, c.gameID, "", payload)
	if err != nil {
		log.Errorf("marshal %s payload: %v", command, err)
		return
	}
	if err := c.transport.Broadcast(c.gameID, msg); err != nil {
		log.Errorf("broadcast %s to game %d: %v", command, c.gameID, err)
	}
}

// Message builds a ServerMessage with a marshalled payload.
func Message(command string, gameID int64, socketID string, payload any) (*comm.ServerMessage, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return &comm.ServerMessage{
		Command:  command,
		GameId:   gameID,
		SocketId: socketID,
		Data:     data,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

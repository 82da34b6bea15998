package game

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

// Screens and task types of the projected views.
const (
	ScreenStatus  = "status"
	ScreenTask    = "task"
	ScreenAnswers = "answers"
	ScreenResults = "results"

	TaskDrawing   = "drawing"
	TaskWriting   = "writing"
	TaskSelecting = "selecting"
)

// Projector computes the role- and progress-filtered view of the room
// for every connected participant and sends it only when it differs
// from what that participant saw last. One projector runs per active
// room, owned by the same goroutine family as the coordinator.
type Projector struct {
	store     Store
	transport Transport
	times     StageTimes
	gameID    int64

	notify chan struct{}

	// previously sent view per player; identical views are suppressed
	// unless the player reconnected on a new channel in between
	prev map[int64]sentView

	// per-round variant lists, shuffled once per recipient
	cachedRoundID  int64
	cachedVariants map[int64][]string
}

func NewProjector(store Store, transport Transport, times StageTimes, gameID int64) *Projector {
	return &Projector{
		store:     store,
		transport: transport,
		times:     times,
		gameID:    gameID,
		notify:    make(chan struct{}, 1),
		prev:      map[int64]sentView{},
	}
}

// sentView remembers what a player last saw and over which channel, so
// a fresh socket always receives its first update.
type sentView struct {
	channel string
	view    *comm.Update
}

// Notify nudges the projector to re-project without waiting for the
// next poll, e.g. after a successful submission.
func (p *Projector) Notify() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run projects on every poll interval until the game finishes or ctx is
// cancelled.
func (p *Projector) Run(ctx context.Context) error {
	for {
		if err := p.BroadcastOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		g, err := p.store.GetGame(ctx, p.gameID)
		if err != nil {
			return err
		}
		if g.Stage == models.GameFinished {
			log.Infof("updates broadcast for game %d is finished", p.gameID)
			return nil
		}
		t := time.NewTimer(p.times.UpdateDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-p.notify:
			t.Stop()
		case <-t.C:
		}
	}
}

// BroadcastOnce computes and sends one projection pass. While the game
// is paused nothing is sent.
func (p *Projector) BroadcastOnce(ctx context.Context) error {
	g, err := p.store.GetGame(ctx, p.gameID)
	if err != nil {
		return err
	}
	if g.IsPaused {
		return nil
	}
	players, err := p.store.ListPlayers(ctx, p.gameID)
	if err != nil {
		return err
	}

	switch g.Stage {
	case models.GamePregame:
		return p.projectPregame(ctx, players)
	case models.GamePreround:
		return p.projectPreround(ctx, players)
	case models.GameRound:
		round, err := p.store.CurrentRound(ctx, p.gameID)
		if err != nil || round == nil {
			return err
		}
		return p.projectRound(ctx, players, round)
	case models.GameFinished:
		return p.projectResults(ctx, players)
	}
	return nil
}

func (p *Projector) projectPregame(ctx context.Context, players []*models.Player) error {
	finished := func(pl *models.Player) bool { return pl.Avatar != "" }
	roster := rosterOf(players, finished)
	for _, pl := range players {
		if pl.IsHost || finished(pl) {
			p.send(pl, statusView(roster, TaskDrawing))
		} else {
			p.send(pl, &comm.Update{ActiveScreen: ScreenTask, TaskType: TaskDrawing, Task: "draw yourself"})
		}
	}
	return nil
}

func (p *Projector) projectPreround(ctx context.Context, players []*models.Player) error {
	pending := map[int64]*models.Round{}
	for _, pl := range players {
		if pl.IsHost {
			continue
		}
		round, err := p.store.NextRoundForPainter(ctx, p.gameID, pl.ID)
		if err != nil {
			return err
		}
		pending[pl.ID] = round
	}
	finished := func(pl *models.Player) bool {
		round := pending[pl.ID]
		return round == nil || round.Painting != ""
	}
	roster := rosterOf(players, finished)
	for _, pl := range players {
		if pl.IsHost || finished(pl) {
			p.send(pl, statusView(roster, TaskDrawing))
		} else {
			p.send(pl, &comm.Update{
				ActiveScreen: ScreenTask,
				TaskType:     TaskDrawing,
				Task:         pending[pl.ID].PaintingTask,
			})
		}
	}
	return nil
}

func (p *Projector) projectRound(ctx context.Context, players []*models.Player, round *models.Round) error {
	switch round.Stage {
	case models.RoundWriting:
		if round.Painting == "" {
			return nil
		}
		return p.projectWriting(ctx, players, round)
	case models.RoundSelecting:
		return p.projectSelecting(ctx, players, round)
	case models.RoundAnswers:
		for _, pl := range players {
			p.send(pl, &comm.Update{ActiveScreen: ScreenAnswers})
		}
		return nil
	case models.RoundResults:
		return p.projectResults(ctx, players)
	}
	return nil
}

func (p *Projector) projectWriting(ctx context.Context, players []*models.Player, round *models.Round) error {
	applied := map[int64]bool{}
	for _, pl := range players {
		if pl.IsHost {
			continue
		}
		v, err := p.store.VariantByAuthor(ctx, round.ID, pl.ID)
		if err != nil {
			return err
		}
		applied[pl.ID] = v != nil
	}
	finished := func(pl *models.Player) bool { return applied[pl.ID] }
	roster := rosterOf(players, finished)
	for _, pl := range players {
		if pl.IsHost || finished(pl) {
			p.send(pl, statusView(roster, TaskWriting))
		} else {
			p.send(pl, &comm.Update{ActiveScreen: ScreenTask, TaskType: TaskWriting, Task: round.Painting})
		}
	}
	return nil
}

func (p *Projector) projectSelecting(ctx context.Context, players []*models.Player, round *models.Round) error {
	if err := p.cacheVariants(ctx, players, round); err != nil {
		return err
	}
	selected := map[int64]bool{}
	for _, pl := range players {
		if pl.IsHost {
			continue
		}
		ok, err := p.store.HasSelected(ctx, round.ID, pl.ID)
		if err != nil {
			return err
		}
		selected[pl.ID] = ok
	}
	// the painter has nothing to select
	finished := func(pl *models.Player) bool { return selected[pl.ID] || pl.ID == round.PainterID }
	roster := rosterOf(players, finished)
	for _, pl := range players {
		if pl.IsHost || finished(pl) {
			p.send(pl, statusView(roster, TaskSelecting))
		} else {
			p.send(pl, &comm.Update{
				ActiveScreen: ScreenTask,
				TaskType:     TaskSelecting,
				Variants:     p.cachedVariants[pl.ID],
			})
		}
	}
	return nil
}

func (p *Projector) projectResults(ctx context.Context, players []*models.Player) error {
	results, err := p.store.ListResults(ctx, p.gameID)
	if err != nil {
		return err
	}
	entries := make([]comm.ResultEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, comm.ResultEntry{
			Nickname:       r.Nickname,
			Avatar:         r.Avatar,
			DrawingColor:   r.DrawingColor,
			Result:         r.Result,
			RoundIncrement: r.RoundIncrement,
		})
	}
	for _, pl := range players {
		p.send(pl, &comm.Update{ActiveScreen: ScreenResults, Results: entries})
	}
	return nil
}

// cacheVariants computes the per-recipient shuffled variant lists once
// per round: every player sees all variants except their own, in an
// order independent of other recipients.
func (p *Projector) cacheVariants(ctx context.Context, players []*models.Player, round *models.Round) error {
	if p.cachedRoundID == round.ID && p.cachedVariants != nil {
		return nil
	}
	variants, err := p.store.ListVariants(ctx, round.ID)
	if err != nil {
		return err
	}
	p.cachedRoundID = round.ID
	p.cachedVariants = map[int64][]string{}
	for _, pl := range players {
		var texts []string
		for _, v := range variants {
			if v.AuthorID != nil && *v.AuthorID == pl.ID {
				continue
			}
			texts = append(texts, v.Text)
		}
		rand.Shuffle(len(texts), func(i, j int) { texts[i], texts[j] = texts[j], texts[i] })
		p.cachedVariants[pl.ID] = texts
	}
	return nil
}

// send delivers the view to the player unless it equals the previously
// sent one. Delivery failures are logged and skipped so one dead
// connection never aborts the pass.
func (p *Projector) send(pl *models.Player, view *comm.Update) {
	if pl.Channel == "" {
		return
	}
	if last, ok := p.prev[pl.ID]; ok && last.channel == pl.Channel && reflect.DeepEqual(last.view, view) {
		return
	}
	msg, err := Message("update", p.gameID, pl.Channel, view)
	if err != nil {
		log.Errorf("marshal update for player %d: %v", pl.ID, err)
		return
	}
	if err := p.transport.Send(pl.Channel, msg); err != nil {
		log.Warnf("send update to player %d (%s): %v", pl.ID, pl.Channel, err)
		return
	}
	p.prev[pl.ID] = sentView{channel: pl.Channel, view: view}
}

func rosterOf(players []*models.Player, finished func(*models.Player) bool) map[string]comm.PlayerStatus {
	roster := map[string]comm.PlayerStatus{}
	for _, pl := range players {
		if pl.IsHost {
			continue
		}
		roster[pl.Nickname] = comm.PlayerStatus{
			Avatar:   pl.Avatar,
			Color:    pl.DrawingColor,
			Finished: finished(pl),
		}
	}
	return roster
}

func statusView(roster map[string]comm.PlayerStatus, taskType string) *comm.Update {
	return &comm.Update{ActiveScreen: ScreenStatus, TaskType: taskType, Players: roster}
}

package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/pkg/scheduler"
)

const autoDrawTimeout = 5 * time.Second

// Drawer performs one automatic draw.
type Drawer interface {
	AutoDraw(ctx context.Context, gameID uuid.UUID) (*DrawResult, error)
}

// AutoDrawScheduler keeps one cron entry per automatic game.
type AutoDrawScheduler struct {
	cron    *cron.Cron
	drawer  Drawer
	mu      sync.Mutex
	entries map[uuid.UUID]autoDrawEntry
	gen     uint64
}

// autoDrawEntry tags a cron entry with the registration that created it,
// so a tick from a replaced entry cannot remove its successor.
type autoDrawEntry struct {
	id  cron.EntryID
	gen uint64
}

// NewAutoDrawScheduler registers draws on c. The caller starts and stops c.
func NewAutoDrawScheduler(c *cron.Cron, drawer Drawer) *AutoDrawScheduler {
	return &AutoDrawScheduler{
		cron:    c,
		drawer:  drawer,
		entries: make(map[uuid.UUID]autoDrawEntry),
	}
}

// Schedule (re)registers the game at its auto_draw_seconds interval.
func (s *AutoDrawScheduler) Schedule(g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[g.ID]; ok {
		s.cron.Remove(e.id)
	}

	s.gen++
	gameID, gen := g.ID, s.gen
	id, err := s.cron.AddFunc(scheduler.Every(time.Duration(g.AutoDrawSeconds)*time.Second), func() {
		s.tick(gameID, gen)
	})
	if err != nil {
		delete(s.entries, gameID)
		return err
	}
	s.entries[gameID] = autoDrawEntry{id: id, gen: gen}

	log.Info().Str("game_id", gameID.String()).Int("every_seconds", g.AutoDrawSeconds).Msg("auto draw scheduled")
	return nil
}

// Unschedule removes the game's entry if present.
func (s *AutoDrawScheduler) Unschedule(gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[gameID]; ok {
		s.cron.Remove(e.id)
		delete(s.entries, gameID)
		log.Info().Str("game_id", gameID.String()).Msg("auto draw unscheduled")
	}
}

// release removes the game's entry only if it is still the one registered as gen.
func (s *AutoDrawScheduler) release(gameID uuid.UUID, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[gameID]
	if !ok || e.gen != gen {
		return
	}
	s.cron.Remove(e.id)
	delete(s.entries, gameID)
	log.Info().Str("game_id", gameID.String()).Msg("auto draw unscheduled")
}

// Scheduled reports whether the game has a live entry.
func (s *AutoDrawScheduler) Scheduled(gameID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[gameID]
	return ok
}

func (s *AutoDrawScheduler) tick(gameID uuid.UUID, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), autoDrawTimeout)
	defer cancel()

	_, err := s.drawer.AutoDraw(ctx, gameID)
	switch {
	case err == nil:
	case errors.Is(err, ErrRoundClosed):
		log.Debug().Str("game_id", gameID.String()).Msg("auto draw raced a new round")
	case errors.Is(err, bingo.ErrNoNumbersRemaining),
		errors.Is(err, ErrGameNotActive),
		errors.Is(err, ErrGameNotFound):
		log.Info().Err(err).Str("game_id", gameID.String()).Msg("auto draw stopped")
		s.release(gameID, gen)
	default:
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("auto draw failed")
	}
}

package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/pkg/metrics"
)

// DrawResult is one draw plus the cards it completed.
type DrawResult struct {
	Draw       *Draw
	Drawn      []int
	Candidates []*Card
}

// DrawNumber draws the next number on behalf of the creator.
func (s *Service) DrawNumber(ctx context.Context, actorID, gameID uuid.UUID) (*DrawResult, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	return s.draw(ctx, g)
}

// AutoDraw draws for the scheduler. No identity is involved.
func (s *Service) AutoDraw(ctx context.Context, gameID uuid.UUID) (*DrawResult, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.draw(ctx, g)
}

func (s *Service) draw(ctx context.Context, g *Game) (res *DrawResult, err error) {
	defer func() { metrics.RecordDraw(err) }()

	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	round := g.CurrentRound

	var (
		d       *Draw
		history []int
	)
	for attempt := 0; attempt < drawAttempts && d == nil; attempt++ {
		history, err = s.roundNumbers(ctx, g.ID, round)
		if err != nil {
			return nil, err
		}
		n, pickErr := s.picker.Pick(history)
		if pickErr != nil {
			return nil, pickErr
		}

		candidate := &Draw{ID: uuid.New(), GameID: g.ID, RoundNumber: round, Number: n}
		err = s.repo.InsertDraw(ctx, candidate)
		if errors.Is(err, errDuplicateDraw) {
			log.Debug().Str("game_id", g.ID.String()).Int("number", n).Msg("concurrent draw collided, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		d = candidate
	}
	if d == nil {
		return nil, fmt.Errorf("%w: draw collided %d times", ErrInternal, drawAttempts)
	}
	history = append(history, d.Number)

	candidates, err := s.evaluate(ctx, g, round, history)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", g.ID.String()).
		Int("round", round).
		Int("number", d.Number).
		Int("drawn", len(history)).
		Int("candidates", len(candidates)).
		Msg("number drawn")
	return &DrawResult{Draw: d, Drawn: history, Candidates: candidates}, nil
}

// evaluate runs the card evaluator over every card of the game against the
// given round's numbers and persists newly completed cards. Nothing is
// flagged once the round has closed underneath the draw.
func (s *Service) evaluate(ctx context.Context, g *Game, round int, drawn []int) ([]*Card, error) {
	cards, err := s.repo.ListCards(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	var (
		candidates []*Card
		ids        []uuid.UUID
	)
	for _, c := range cards {
		if c.IsBingo || !bingo.CheckBingo(c.NumberList(), drawn) {
			continue
		}
		c.IsBingo = true
		candidates = append(candidates, c)
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.repo.SetBingo(ctx, g.ID, round, ids); err != nil {
		if errors.Is(err, ErrRoundClosed) || errors.Is(err, ErrGameNotActive) {
			log.Debug().Str("game_id", g.ID.String()).Int("round", round).Msg("round closed before evaluation, skipping candidates")
			return nil, nil
		}
		return nil, err
	}

	for _, c := range candidates {
		p, err := s.repo.GetPlayer(ctx, c.PlayerID)
		if err != nil {
			log.Error().Err(err).Str("card_id", c.ID.String()).Msg("Failed to load card owner")
			continue
		}
		s.notifier.NotifyBingoCandidate(ctx, p.UserID, g.ID, c.ID)
	}
	return candidates, nil
}

func (s *Service) roundNumbers(ctx context.Context, gameID uuid.UUID, round int) ([]int, error) {
	draws, err := s.repo.ListDraws(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(draws))
	for i, d := range draws {
		out[i] = d.Number
	}
	return out, nil
}

func (s *Service) resolveRound(ctx context.Context, gameID uuid.UUID, round int) (int, error) {
	if round > 0 {
		return round, nil
	}
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return g.CurrentRound, nil
}

// History returns the round's draws in the order they happened. round <= 0 means current.
func (s *Service) History(ctx context.Context, gameID uuid.UUID, round int) ([]*Draw, error) {
	round, err := s.resolveRound(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDraws(ctx, gameID, round)
}

// Grid returns the numeric 1..75 view of a round.
func (s *Service) Grid(ctx context.Context, gameID uuid.UUID, round int) ([]bingo.GridCell, error) {
	round, err := s.resolveRound(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	numbers, err := s.roundNumbers(ctx, gameID, round)
	if err != nil {
		return nil, err
	}
	return bingo.Grid(numbers), nil
}

// LastDraw returns the latest draw of the current round, or nil before the first draw.
func (s *Service) LastDraw(ctx context.Context, gameID uuid.UUID) (*Draw, error) {
	draws, err := s.History(ctx, gameID, 0)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, nil
	}
	return draws[len(draws)-1], nil
}

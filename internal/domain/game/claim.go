package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/pkg/metrics"
)

// MarkNumber records a player's mark on their own card. Marks never decide a win.
func (s *Service) MarkNumber(ctx context.Context, userID, gameID, cardID uuid.UUID, number int) (*Card, error) {
	if number < bingo.MinNumber || number > bingo.MaxNumber {
		return nil, bingo.ErrNumberOutOfRange
	}

	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.GameID != gameID {
		return nil, ErrCardNotFound
	}
	owner, err := s.repo.GetPlayer(ctx, card.PlayerID)
	if err != nil {
		return nil, err
	}
	if owner.UserID != userID {
		return nil, ErrForbidden
	}

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}

	marked, changed := bingo.MarkNumber(card.NumberList(), card.MarkedList(), number)
	if !changed {
		return card, nil
	}
	if err := s.repo.UpdateMarked(ctx, card.ID, marked); err != nil {
		return nil, err
	}
	card.Marked = toInt64Array(marked)
	return card, nil
}

// ClaimPrize assigns prize to card. The winner row is inserted before the
// is_claimed flag is set; the storage unique key on prize_id decides races.
// The creator may claim for any card, a player only for their own.
func (s *Service) ClaimPrize(ctx context.Context, actorID, gameID, cardID, prizeID uuid.UUID) (*Winner, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	prize, err := s.repo.GetPrize(ctx, prizeID)
	if err != nil {
		return nil, err
	}
	if card.GameID != g.ID || prize.GameID != g.ID {
		metrics.RecordClaim("invalid_reference")
		return nil, ErrInvalidReference
	}

	owner, err := s.repo.GetPlayer(ctx, card.PlayerID)
	if err != nil {
		return nil, err
	}
	if !g.IsCreator(actorID) && owner.UserID != actorID {
		metrics.RecordClaim("forbidden")
		return nil, ErrForbidden
	}

	if prize.IsClaimed {
		metrics.RecordClaim("already_claimed")
		return nil, ErrAlreadyClaimed
	}
	if g.Status != StatusActive {
		metrics.RecordClaim("not_active")
		return nil, ErrGameNotActive
	}

	drawn, err := s.roundNumbers(ctx, g.ID, g.CurrentRound)
	if err != nil {
		return nil, err
	}
	if !bingo.CheckBingo(card.NumberList(), drawn) {
		metrics.RecordClaim("not_bingo")
		return nil, ErrNotBingo
	}

	w := &Winner{
		ID:          uuid.New(),
		GameID:      g.ID,
		PrizeID:     prize.ID,
		CardID:      card.ID,
		UserID:      owner.UserID,
		RoundNumber: g.CurrentRound,
	}
	if err := s.repo.InsertWinner(ctx, w); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			metrics.RecordClaim("already_claimed")
			s.reconcileClaimed(ctx, prize.ID)
			return nil, ErrAlreadyClaimed
		}
		if errors.Is(err, ErrGameNotActive) || errors.Is(err, ErrRoundClosed) {
			metrics.RecordClaim("not_active")
			return nil, err
		}
		metrics.RecordClaim("error")
		return nil, err
	}
	s.reconcileClaimed(ctx, prize.ID)
	metrics.RecordClaim("won")

	log.Info().
		Str("game_id", g.ID.String()).
		Str("prize_id", prize.ID.String()).
		Str("card_id", card.ID.String()).
		Str("user_id", owner.UserID.String()).
		Int("round", g.CurrentRound).
		Msg("prize claimed")

	s.notifier.NotifyPrizeWon(ctx, owner.UserID, g.ID, prize.Name)
	s.finishIfComplete(ctx, g.ID)
	return w, nil
}

// reconcileClaimed sets the cached flag once a winner row exists. A failure
// only leaves the cache stale; the winner row stays authoritative.
func (s *Service) reconcileClaimed(ctx context.Context, prizeID uuid.UUID) {
	if err := s.repo.MarkPrizeClaimed(ctx, prizeID); err != nil {
		log.Error().Err(err).Str("prize_id", prizeID.String()).Msg("Failed to flag prize as claimed")
	}
}

// finishIfComplete finishes the game once every prize has a winner.
func (s *Service) finishIfComplete(ctx context.Context, gameID uuid.UUID) {
	left, err := s.repo.CountUnclaimedPrizes(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("Failed to count unclaimed prizes")
		return
	}
	if left > 0 {
		return
	}

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("Failed to reload game for auto finish")
		return
	}
	if g.Status == StatusFinished {
		return
	}
	if _, err := s.finish(ctx, g); err != nil && !errors.Is(err, ErrInvalidTransition) {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("Failed to auto finish game")
	}
}

package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/codegen"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 5
	drawAttempts       = 3
)

// Ledger is the part of the wallet ledger used to charge game creation.
type Ledger interface {
	DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error)
}

// DrawScheduler drives automatic draws from outside the engine.
type DrawScheduler interface {
	Schedule(g *Game) error
	Unschedule(gameID uuid.UUID)
}

// Service handles game business logic
type Service struct {
	repo            Repository
	ledger          Ledger
	notifier        *notification.Service
	picker          bingo.Picker
	scheduler       DrawScheduler
	autoDrawSeconds int
}

// NewService creates game service
func NewService(repo Repository, ledger Ledger, notifier *notification.Service, picker bingo.Picker, autoDrawSeconds int) *Service {
	if picker == nil {
		picker = bingo.RandomPicker{}
	}
	if autoDrawSeconds <= 0 {
		autoDrawSeconds = 10
	}
	return &Service{
		repo:            repo,
		ledger:          ledger,
		notifier:        notifier,
		picker:          picker,
		autoDrawSeconds: autoDrawSeconds,
	}
}

// SetScheduler wires the auto-draw scheduler after construction.
func (s *Service) SetScheduler(scheduler DrawScheduler) {
	s.scheduler = scheduler
}

// CreateInput holds data for a new game
type CreateInput struct {
	PackageID       uuid.UUID
	Name            string
	DrawMode        DrawMode
	AutoDrawSeconds int
}

// Create creates a draft game and charges the package cost in the same transaction.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, in CreateInput) (*Game, error) {
	pkg, err := s.repo.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	g := &Game{
		ID:              uuid.New(),
		CreatorID:       creatorID,
		PackageID:       pkg.ID,
		Name:            strings.TrimSpace(in.Name),
		Status:          StatusDraft,
		DrawMode:        in.DrawMode,
		AutoDrawSeconds: in.AutoDrawSeconds,
		CurrentRound:    1,
		MaxRounds:       pkg.MaxRounds,
	}
	if g.DrawMode == "" {
		g.DrawMode = DrawModeManual
	}
	if g.AutoDrawSeconds <= 0 {
		g.AutoDrawSeconds = s.autoDrawSeconds
	}

	charge := func(ctx context.Context, tx *sqlx.Tx) error {
		if pkg.CostCredits == 0 {
			return nil
		}
		_, err := s.ledger.DebitTx(ctx, tx, creatorID, pkg.CostCredits, "Game creation: "+g.Name, ledger.FromGame(g.ID))
		return err
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		g.InviteCode, err = codegen.Random(codegen.Alphabet, inviteCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%w: invite code", ErrInternal)
		}
		err = s.repo.CreateGame(ctx, g, charge)
		if !errors.Is(err, errInviteCodeTaken) {
			break
		}
	}
	if errors.Is(err, errInviteCodeTaken) {
		return nil, fmt.Errorf("%w: invite code attempts exhausted", ErrInternal)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", g.ID.String()).
		Str("creator_id", creatorID.String()).
		Int64("cost", pkg.CostCredits).
		Msg("game created")
	return g, nil
}

// Detail is a game with its prizes, winners and seat count.
type Detail struct {
	Game        *Game
	Prizes      []*Prize
	Winners     []*Winner
	PlayerCount int
	MaxPlayers  int
}

// GetByID returns game by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Game, error) {
	return s.repo.GetGame(ctx, id)
}

// GetDetail returns the game with prizes and winners.
func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	g, err := s.repo.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	pkg, err := s.repo.GetPackage(ctx, g.PackageID)
	if err != nil {
		return nil, err
	}
	prizes, err := s.repo.ListPrizes(ctx, id)
	if err != nil {
		return nil, err
	}
	winners, err := s.repo.ListWinners(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Game: g, Prizes: prizes, Winners: winners, PlayerCount: count, MaxPlayers: pkg.MaxPlayers}, nil
}

// loadOwned loads the game and rejects callers other than its creator.
func (s *Service) loadOwned(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !g.IsCreator(actorID) {
		log.Warn().Str("game_id", gameID.String()).Str("user_id", actorID.String()).Msg("non-creator game action rejected")
		return nil, ErrForbidden
	}
	return g, nil
}

// UpdateDraftInput holds optional draft changes
type UpdateDraftInput struct {
	Name            *string
	DrawMode        *DrawMode
	AutoDrawSeconds *int
}

// UpdateDraft edits a draft game.
func (s *Service) UpdateDraft(ctx context.Context, actorID, gameID uuid.UUID, in UpdateDraftInput) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusDraft {
		return nil, ErrNotEditable
	}

	if in.Name != nil {
		g.Name = strings.TrimSpace(*in.Name)
	}
	if in.DrawMode != nil {
		g.DrawMode = *in.DrawMode
	}
	if in.AutoDrawSeconds != nil && *in.AutoDrawSeconds > 0 {
		g.AutoDrawSeconds = *in.AutoDrawSeconds
	}

	if err := s.repo.UpdateDraft(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddPrize adds a prize to a draft game.
func (s *Service) AddPrize(ctx context.Context, actorID, gameID uuid.UUID, position int, name string) (*Prize, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusDraft {
		return nil, ErrNotEditable
	}

	p := &Prize{ID: uuid.New(), GameID: g.ID, Position: position, Name: strings.TrimSpace(name)}
	if err := s.repo.AddPrize(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePrize deletes a prize from a draft game.
func (s *Service) RemovePrize(ctx context.Context, actorID, gameID, prizeID uuid.UUID) error {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return err
	}
	if g.Status != StatusDraft {
		return ErrNotEditable
	}
	return s.repo.DeletePrize(ctx, gameID, prizeID)
}

func (s *Service) transition(ctx context.Context, g *Game, to Status) (*Game, error) {
	if !CanTransition(g.Status, to) {
		return nil, ErrInvalidTransition
	}
	updated, err := s.repo.TransitionStatus(ctx, g.ID, g.Status, to)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("game_id", g.ID.String()).
		Str("from", string(g.Status)).
		Str("to", string(to)).
		Msg("game status changed")
	return updated, nil
}

// Publish opens a draft game for players. At least one prize is required.
func (s *Service) Publish(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusDraft {
		return nil, ErrInvalidTransition
	}

	prizes, err := s.repo.ListPrizes(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(prizes) == 0 {
		return nil, ErrNoPrizesConfigured
	}
	return s.transition(ctx, g, StatusWaiting)
}

// CanJoin reports whether the game currently accepts new players.
func (s *Service) CanJoin(ctx context.Context, gameID uuid.UUID) (bool, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	pkg, err := s.repo.GetPackage(ctx, g.PackageID)
	if err != nil {
		return false, err
	}
	count, err := s.repo.CountPlayers(ctx, gameID)
	if err != nil {
		return false, err
	}
	return CanJoin(g, count, pkg.MaxPlayers), nil
}

// Join seats the user in the game behind inviteCode and deals a card.
// Joining twice returns the existing seat.
func (s *Service) Join(ctx context.Context, userID uuid.UUID, inviteCode string) (*Player, *Card, error) {
	g, err := s.repo.GetGameByInviteCode(ctx, codegen.Normalize(inviteCode))
	if err != nil {
		return nil, nil, err
	}

	if p, c, err := s.existingSeat(ctx, g.ID, userID); err == nil {
		return p, c, nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return nil, nil, err
	}

	pkg, err := s.repo.GetPackage(ctx, g.PackageID)
	if err != nil {
		return nil, nil, err
	}
	if g.Status != StatusWaiting {
		return nil, nil, ErrCannotJoin
	}
	count, err := s.repo.CountPlayers(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	if !CanJoin(g, count, pkg.MaxPlayers) {
		return nil, nil, ErrGameFull
	}

	numbers, err := bingo.NewCard(pkg.CardSize, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: deal card", ErrInternal)
	}

	p := &Player{ID: uuid.New(), GameID: g.ID, UserID: userID}
	c := &Card{ID: uuid.New(), GameID: g.ID, PlayerID: p.ID, Numbers: toInt64Array(numbers), Marked: toInt64Array(nil)}

	err = s.repo.AddPlayer(ctx, p, c, pkg.MaxPlayers)
	if errors.Is(err, errAlreadyJoined) {
		return s.existingSeat(ctx, g.ID, userID)
	}
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("game_id", g.ID.String()).
		Str("user_id", userID.String()).
		Int("card_size", len(numbers)).
		Msg("player joined game")
	return p, c, nil
}

func (s *Service) existingSeat(ctx context.Context, gameID, userID uuid.UUID) (*Player, *Card, error) {
	p, err := s.repo.GetPlayerByUser(ctx, gameID, userID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.repo.GetCardByPlayer(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}

// Start moves a waiting game to active. At least one player is required.
func (s *Service) Start(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusWaiting {
		return nil, ErrInvalidTransition
	}

	count, err := s.repo.CountPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoPlayersPresent
	}

	updated, err := s.transition(ctx, g, StatusActive)
	if err != nil {
		return nil, err
	}
	s.schedule(updated)
	s.notifier.NotifyGameStarted(ctx, s.playerUserIDs(ctx, gameID), gameID, updated.Name)
	return updated, nil
}

// Pause suspends an active game.
func (s *Service) Pause(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive {
		return nil, ErrInvalidTransition
	}
	updated, err := s.transition(ctx, g, StatusPaused)
	if err != nil {
		return nil, err
	}
	s.unschedule(gameID)
	return updated, nil
}

// Resume reactivates a paused game.
func (s *Service) Resume(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusPaused {
		return nil, ErrInvalidTransition
	}
	updated, err := s.transition(ctx, g, StatusActive)
	if err != nil {
		return nil, err
	}
	s.schedule(updated)
	return updated, nil
}

// Finish forces an active or paused game to finished.
func (s *Service) Finish(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, g)
}

func (s *Service) finish(ctx context.Context, g *Game) (*Game, error) {
	updated, err := s.transition(ctx, g, StatusFinished)
	if err != nil {
		return nil, err
	}
	s.unschedule(g.ID)
	s.notifier.NotifyGameFinished(ctx, s.playerUserIDs(ctx, g.ID), g.ID, updated.Name)
	return updated, nil
}

// NextRound starts the next round of an active game. Draws and bingo flags are per round.
func (s *Service) NextRound(ctx context.Context, actorID, gameID uuid.UUID) (*Game, error) {
	g, err := s.loadOwned(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if g.CurrentRound >= g.MaxRounds {
		return nil, ErrMaxRoundsReached
	}

	updated, err := s.repo.AdvanceRound(ctx, gameID, g.CurrentRound)
	if err != nil {
		return nil, err
	}
	log.Info().Str("game_id", gameID.String()).Int("round", updated.CurrentRound).Msg("game round advanced")
	return updated, nil
}

func (s *Service) schedule(g *Game) {
	if s.scheduler == nil || !g.IsAutomatic() || g.Status != StatusActive {
		return
	}
	if err := s.scheduler.Schedule(g); err != nil {
		log.Error().Err(err).Str("game_id", g.ID.String()).Msg("Failed to schedule auto draw")
	}
}

func (s *Service) unschedule(gameID uuid.UUID) {
	if s.scheduler != nil {
		s.scheduler.Unschedule(gameID)
	}
}

// RestoreSchedules re-registers every active automatic game, used at boot.
func (s *Service) RestoreSchedules(ctx context.Context) (int, error) {
	games, err := s.repo.ListAutomaticActive(ctx)
	if err != nil {
		return 0, err
	}
	for _, g := range games {
		s.schedule(g)
	}
	return len(games), nil
}

func (s *Service) playerUserIDs(ctx context.Context, gameID uuid.UUID) []uuid.UUID {
	players, err := s.repo.ListPlayers(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("Failed to list players for notification")
		return nil
	}
	ids := make([]uuid.UUID, len(players))
	for i, p := range players {
		ids[i] = p.UserID
	}
	return ids
}

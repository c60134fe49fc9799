package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const (
	constraintInviteCode  = "games_invite_code_key"
	constraintPlayer      = "game_players_game_user_key"
	constraintDraw        = "game_draws_game_round_number_key"
	constraintPrizeWinner = "game_winners_prize_id_key"
	constraintPrizeSlot   = "game_prizes_game_position_key"
)

var (
	errInviteCodeTaken = errors.New("invite code taken")
	errAlreadyJoined   = errors.New("user already joined")
	errDuplicateDraw   = errors.New("number already drawn in round")
)

// ChargeFunc runs inside the game creation transaction. tx is nil for stores without SQL transactions.
type ChargeFunc func(ctx context.Context, tx *sqlx.Tx) error

// Repository defines game data access
type Repository interface {
	GetPackage(ctx context.Context, id uuid.UUID) (*Package, error)

	CreateGame(ctx context.Context, g *Game, charge ChargeFunc) error
	GetGame(ctx context.Context, id uuid.UUID) (*Game, error)
	GetGameByInviteCode(ctx context.Context, code string) (*Game, error)
	UpdateDraft(ctx context.Context, g *Game) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Game, error)
	AdvanceRound(ctx context.Context, id uuid.UUID, fromRound int) (*Game, error)
	ListAutomaticActive(ctx context.Context) ([]*Game, error)

	AddPrize(ctx context.Context, p *Prize) error
	DeletePrize(ctx context.Context, gameID, prizeID uuid.UUID) error
	GetPrize(ctx context.Context, id uuid.UUID) (*Prize, error)
	ListPrizes(ctx context.Context, gameID uuid.UUID) ([]*Prize, error)
	MarkPrizeClaimed(ctx context.Context, id uuid.UUID) error
	CountUnclaimedPrizes(ctx context.Context, gameID uuid.UUID) (int, error)

	AddPlayer(ctx context.Context, p *Player, c *Card, maxPlayers int) error
	GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error)
	GetPlayerByUser(ctx context.Context, gameID, userID uuid.UUID) (*Player, error)
	CountPlayers(ctx context.Context, gameID uuid.UUID) (int, error)
	ListPlayers(ctx context.Context, gameID uuid.UUID) ([]*Player, error)

	GetCard(ctx context.Context, id uuid.UUID) (*Card, error)
	GetCardByPlayer(ctx context.Context, playerID uuid.UUID) (*Card, error)
	ListCards(ctx context.Context, gameID uuid.UUID) ([]*Card, error)
	UpdateMarked(ctx context.Context, cardID uuid.UUID, marked []int) error
	SetBingo(ctx context.Context, gameID uuid.UUID, round int, cardIDs []uuid.UUID) error

	InsertDraw(ctx context.Context, d *Draw) error
	ListDraws(ctx context.Context, gameID uuid.UUID, round int) ([]*Draw, error)

	InsertWinner(ctx context.Context, w *Winner) error
	ListWinners(ctx context.Context, gameID uuid.UUID) ([]*Winner, error)
}

type repository struct {
	db     *sqlx.DB
	runner *database.TxRunner
}

// NewRepository creates game repository
func NewRepository(runner *database.TxRunner) Repository {
	return &repository{db: runner.DB(), runner: runner}
}

var gameColumns = strings.Join([]string{
	"id", "creator_id", "package_id", "name", "status", "draw_mode", "auto_draw_seconds",
	"current_round", "max_rounds", "invite_code", "started_at", "finished_at", "created_at", "updated_at",
}, ", ")

func (r *repository) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Package
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, max_players, card_size, max_rounds, cost_credits, is_active, created_at
		FROM game_packages WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get package", ErrInternal)
	}
	return &p, nil
}

func (r *repository) CreateGame(ctx context.Context, g *Game, charge ChargeFunc) error {
	return r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO games (id, creator_id, package_id, name, status, draw_mode, auto_draw_seconds, current_round, max_rounds, invite_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`, g.ID, g.CreatorID, g.PackageID, g.Name, string(g.Status), string(g.DrawMode),
			g.AutoDrawSeconds, g.CurrentRound, g.MaxRounds, g.InviteCode).
			Scan(&g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			if database.UniqueConstraint(err) == constraintInviteCode {
				return errInviteCodeTaken
			}
			return fmt.Errorf("insert game: %w", err)
		}
		if charge != nil {
			return charge(ctx, tx)
		}
		return nil
	})
}

func (r *repository) getGame(ctx context.Context, where string, arg interface{}) (*Game, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var g Game
	err := r.db.GetContext(ctx, &g, `SELECT `+gameColumns+` FROM games WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get game", ErrInternal)
	}
	return &g, nil
}

func (r *repository) GetGame(ctx context.Context, id uuid.UUID) (*Game, error) {
	return r.getGame(ctx, "id = $1", id)
}

func (r *repository) GetGameByInviteCode(ctx context.Context, code string) (*Game, error) {
	return r.getGame(ctx, "invite_code = $1", code)
}

func (r *repository) UpdateDraft(ctx context.Context, g *Game) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		UPDATE games
		SET name = $1, draw_mode = $2, auto_draw_seconds = $3, updated_at = now()
		WHERE id = $4 AND status = 'draft'
		RETURNING updated_at
	`, g.Name, string(g.DrawMode), g.AutoDrawSeconds, g.ID).Scan(&g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotEditable
	}
	if err != nil {
		return fmt.Errorf("%w: update draft", ErrInternal)
	}
	return nil
}

// TransitionStatus is a compare-and-set on status: it fails with
// ErrInvalidTransition when the row is no longer in `from`.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Game, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var g Game
	err := r.db.GetContext(ctx, &g, `
		UPDATE games
		SET status = $1::varchar,
		    started_at = CASE WHEN $1::varchar = 'active' AND started_at IS NULL THEN now() ELSE started_at END,
		    finished_at = CASE WHEN $1::varchar = 'finished' THEN now() ELSE finished_at END,
		    updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+gameColumns, string(to), id, string(from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("%w: transition game", ErrInternal)
	}
	return &g, nil
}

func (r *repository) AdvanceRound(ctx context.Context, id uuid.UUID, fromRound int) (*Game, error) {
	var g Game
	err := r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &g, `
			UPDATE games
			SET current_round = current_round + 1, updated_at = now()
			WHERE id = $1 AND status = 'active' AND current_round = $2 AND current_round < max_rounds
			RETURNING `+gameColumns, id, fromRound)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidTransition
		}
		if err != nil {
			return fmt.Errorf("advance round: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE game_cards SET is_bingo = FALSE, marked = '{}' WHERE game_id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) ListAutomaticActive(ctx context.Context) ([]*Game, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var games []*Game
	err := r.db.SelectContext(ctx, &games, `
		SELECT `+gameColumns+` FROM games
		WHERE status = 'active' AND draw_mode = 'automatic'
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list automatic games", ErrInternal)
	}
	return games, nil
}

func (r *repository) AddPrize(ctx context.Context, p *Prize) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO game_prizes (id, game_id, position, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.GameID, p.Position, p.Name).Scan(&p.CreatedAt)
	if database.UniqueConstraint(err) == constraintPrizeSlot {
		return ErrDuplicatePosition
	}
	if err != nil {
		return fmt.Errorf("%w: add prize", ErrInternal)
	}
	return nil
}

func (r *repository) DeletePrize(ctx context.Context, gameID, prizeID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM game_prizes WHERE id = $1 AND game_id = $2`, prizeID, gameID)
	if err != nil {
		return fmt.Errorf("%w: delete prize", ErrInternal)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPrizeNotFound
	}
	return nil
}

func (r *repository) GetPrize(ctx context.Context, id uuid.UUID) (*Prize, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Prize
	err := r.db.GetContext(ctx, &p, `SELECT id, game_id, position, name, is_claimed, created_at FROM game_prizes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrizeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get prize", ErrInternal)
	}
	return &p, nil
}

func (r *repository) ListPrizes(ctx context.Context, gameID uuid.UUID) ([]*Prize, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var prizes []*Prize
	err := r.db.SelectContext(ctx, &prizes, `
		SELECT id, game_id, position, name, is_claimed, created_at
		FROM game_prizes WHERE game_id = $1
		ORDER BY position
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: list prizes", ErrInternal)
	}
	return prizes, nil
}

func (r *repository) MarkPrizeClaimed(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `UPDATE game_prizes SET is_claimed = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: mark prize claimed", ErrInternal)
	}
	return nil
}

func (r *repository) CountUnclaimedPrizes(ctx context.Context, gameID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM game_prizes p
		WHERE p.game_id = $1
		  AND NOT EXISTS (SELECT 1 FROM game_winners w WHERE w.prize_id = p.id)
	`, gameID)
	if err != nil {
		return 0, fmt.Errorf("%w: count unclaimed prizes", ErrInternal)
	}
	return n, nil
}

// AddPlayer seats the player and deals the card under the game row lock,
// so the seat count cannot overshoot maxPlayers.
func (r *repository) AddPlayer(ctx context.Context, p *Player, c *Card, maxPlayers int) error {
	return r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		var status Status
		err := tx.GetContext(ctx, &status, `SELECT status FROM games WHERE id = $1 FOR UPDATE`, p.GameID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("lock game: %w", err)
		}
		if status != StatusWaiting {
			return ErrCannotJoin
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM game_players WHERE game_id = $1`, p.GameID); err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		if count >= maxPlayers {
			return ErrGameFull
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO game_players (id, game_id, user_id)
			VALUES ($1, $2, $3)
			RETURNING joined_at
		`, p.ID, p.GameID, p.UserID).Scan(&p.JoinedAt)
		if err != nil {
			if database.UniqueConstraint(err) == constraintPlayer {
				return errAlreadyJoined
			}
			return fmt.Errorf("insert player: %w", err)
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO game_cards (id, game_id, player_id, numbers, marked)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, c.ID, c.GameID, c.PlayerID, c.Numbers, c.Marked).Scan(&c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
		return nil
	})
}

func (r *repository) getPlayer(ctx context.Context, where string, args ...interface{}) (*Player, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Player
	err := r.db.GetContext(ctx, &p, `SELECT id, game_id, user_id, joined_at FROM game_players WHERE `+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get player", ErrInternal)
	}
	return &p, nil
}

func (r *repository) GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error) {
	return r.getPlayer(ctx, "id = $1", id)
}

func (r *repository) GetPlayerByUser(ctx context.Context, gameID, userID uuid.UUID) (*Player, error) {
	return r.getPlayer(ctx, "game_id = $1 AND user_id = $2", gameID, userID)
}

func (r *repository) CountPlayers(ctx context.Context, gameID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM game_players WHERE game_id = $1`, gameID); err != nil {
		return 0, fmt.Errorf("%w: count players", ErrInternal)
	}
	return n, nil
}

func (r *repository) ListPlayers(ctx context.Context, gameID uuid.UUID) ([]*Player, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var players []*Player
	err := r.db.SelectContext(ctx, &players, `
		SELECT id, game_id, user_id, joined_at FROM game_players
		WHERE game_id = $1 ORDER BY joined_at
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: list players", ErrInternal)
	}
	return players, nil
}

const cardColumns = "id, game_id, player_id, numbers, marked, is_bingo, created_at"

func (r *repository) getCard(ctx context.Context, where string, arg interface{}) (*Card, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Card
	err := r.db.GetContext(ctx, &c, `SELECT `+cardColumns+` FROM game_cards WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get card", ErrInternal)
	}
	return &c, nil
}

func (r *repository) GetCard(ctx context.Context, id uuid.UUID) (*Card, error) {
	return r.getCard(ctx, "id = $1", id)
}

func (r *repository) GetCardByPlayer(ctx context.Context, playerID uuid.UUID) (*Card, error) {
	return r.getCard(ctx, "player_id = $1", playerID)
}

func (r *repository) ListCards(ctx context.Context, gameID uuid.UUID) ([]*Card, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var cards []*Card
	if err := r.db.SelectContext(ctx, &cards, `SELECT `+cardColumns+` FROM game_cards WHERE game_id = $1`, gameID); err != nil {
		return nil, fmt.Errorf("%w: list cards", ErrInternal)
	}
	return cards, nil
}

func (r *repository) UpdateMarked(ctx context.Context, cardID uuid.UUID, marked []int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `UPDATE game_cards SET marked = $1 WHERE id = $2`, toInt64Array(marked), cardID); err != nil {
		return fmt.Errorf("%w: update marked", ErrInternal)
	}
	return nil
}

func (r *repository) SetBingo(ctx context.Context, gameID uuid.UUID, round int, cardIDs []uuid.UUID) error {
	if len(cardIDs) == 0 {
		return nil
	}
	ids := make(pq.StringArray, len(cardIDs))
	for i, id := range cardIDs {
		ids[i] = id.String()
	}
	return r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		if err := lockActiveRound(ctx, tx, gameID, round); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE game_cards SET is_bingo = TRUE
			WHERE game_id = $1 AND id = ANY($2::uuid[])
		`, gameID, ids)
		if err != nil {
			return fmt.Errorf("set bingo: %w", err)
		}
		return nil
	})
}

// lockActiveRound share-locks the game row and checks it is still active in
// round. Status changes and AdvanceRound update that row, so they wait for
// the caller's transaction and the caller never writes into a closed round.
func lockActiveRound(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, round int) error {
	var row struct {
		Status       Status `db:"status"`
		CurrentRound int    `db:"current_round"`
	}
	err := tx.GetContext(ctx, &row, `SELECT status, current_round FROM games WHERE id = $1 FOR SHARE`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrGameNotFound
	}
	if err != nil {
		return fmt.Errorf("lock game: %w", err)
	}
	if row.Status != StatusActive {
		return ErrGameNotActive
	}
	if row.CurrentRound != round {
		return ErrRoundClosed
	}
	return nil
}

// InsertDraw records d if the game is still active in d.RoundNumber.
func (r *repository) InsertDraw(ctx context.Context, d *Draw) error {
	return r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		if err := lockActiveRound(ctx, tx, d.GameID, d.RoundNumber); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO game_draws (id, game_id, round_number, number)
			VALUES ($1, $2, $3, $4)
			RETURNING seq, created_at
		`, d.ID, d.GameID, d.RoundNumber, d.Number).Scan(&d.Seq, &d.CreatedAt)
		if database.UniqueConstraint(err) == constraintDraw {
			return errDuplicateDraw
		}
		if err != nil {
			return fmt.Errorf("insert draw: %w", err)
		}
		return nil
	})
}

// ListDraws returns the round's draws in creation order.
func (r *repository) ListDraws(ctx context.Context, gameID uuid.UUID, round int) ([]*Draw, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var draws []*Draw
	err := r.db.SelectContext(ctx, &draws, `
		SELECT id, seq, game_id, round_number, number, created_at
		FROM game_draws
		WHERE game_id = $1 AND round_number = $2
		ORDER BY seq
	`, gameID, round)
	if err != nil {
		return nil, fmt.Errorf("%w: list draws", ErrInternal)
	}
	return draws, nil
}

// InsertWinner records w if the game is still active in w.RoundNumber.
// The unique key on prize_id decides concurrent claims.
func (r *repository) InsertWinner(ctx context.Context, w *Winner) error {
	return r.runner.Run(ctx, func(tx *sqlx.Tx) error {
		if err := lockActiveRound(ctx, tx, w.GameID, w.RoundNumber); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO game_winners (id, game_id, prize_id, card_id, user_id, round_number)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING won_at
		`, w.ID, w.GameID, w.PrizeID, w.CardID, w.UserID, w.RoundNumber).Scan(&w.WonAt)
		if database.UniqueConstraint(err) == constraintPrizeWinner {
			return ErrAlreadyClaimed
		}
		if err != nil {
			return fmt.Errorf("insert winner: %w", err)
		}
		return nil
	})
}

func (r *repository) ListWinners(ctx context.Context, gameID uuid.UUID) ([]*Winner, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var winners []*Winner
	err := r.db.SelectContext(ctx, &winners, `
		SELECT id, game_id, prize_id, card_id, user_id, round_number, won_at
		FROM game_winners WHERE game_id = $1
		ORDER BY won_at
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: list winners", ErrInternal)
	}
	return winners, nil
}

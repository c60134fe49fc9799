package game

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Status represents game lifecycle status
type Status string

const (
	StatusDraft    Status = "draft"
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// DrawMode decides who triggers draws. The draw engine itself ignores it.
type DrawMode string

const (
	DrawModeManual    DrawMode = "manual"
	DrawModeAutomatic DrawMode = "automatic"
)

// Package is the purchasable game template.
type Package struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MaxPlayers  int       `db:"max_players" json:"max_players"`
	CardSize    int       `db:"card_size" json:"card_size"`
	MaxRounds   int       `db:"max_rounds" json:"max_rounds"`
	CostCredits int64     `db:"cost_credits" json:"cost_credits"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Game represents a bingo game
type Game struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	CreatorID       uuid.UUID    `db:"creator_id" json:"creator_id"`
	PackageID       uuid.UUID    `db:"package_id" json:"package_id"`
	Name            string       `db:"name" json:"name"`
	Status          Status       `db:"status" json:"status"`
	DrawMode        DrawMode     `db:"draw_mode" json:"draw_mode"`
	AutoDrawSeconds int          `db:"auto_draw_seconds" json:"auto_draw_seconds"`
	CurrentRound    int          `db:"current_round" json:"current_round"`
	MaxRounds       int          `db:"max_rounds" json:"max_rounds"`
	InviteCode      string       `db:"invite_code" json:"invite_code"`
	StartedAt       sql.NullTime `db:"started_at" json:"-"`
	FinishedAt      sql.NullTime `db:"finished_at" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// IsCreator reports whether userID owns the game.
func (g *Game) IsCreator(userID uuid.UUID) bool {
	return g.CreatorID == userID
}

// IsAutomatic reports whether an external timer drives the draws.
func (g *Game) IsAutomatic() bool {
	return g.DrawMode == DrawModeAutomatic
}

// Player is a user's seat in a game.
type Player struct {
	ID       uuid.UUID `db:"id" json:"id"`
	GameID   uuid.UUID `db:"game_id" json:"game_id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Card holds a player's numbers. IsBingo caches the evaluator result for the current round.
type Card struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	GameID    uuid.UUID     `db:"game_id" json:"game_id"`
	PlayerID  uuid.UUID     `db:"player_id" json:"player_id"`
	Numbers   pq.Int64Array `db:"numbers" json:"numbers"`
	Marked    pq.Int64Array `db:"marked" json:"marked"`
	IsBingo   bool          `db:"is_bingo" json:"is_bingo"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// NumberList returns card numbers as ints.
func (c *Card) NumberList() []int {
	return toInts(c.Numbers)
}

// MarkedList returns marked numbers as ints.
func (c *Card) MarkedList() []int {
	return toInts(c.Marked)
}

// Draw is one drawn number. Seq preserves creation order.
type Draw struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Seq         int64     `db:"seq" json:"-"`
	GameID      uuid.UUID `db:"game_id" json:"game_id"`
	RoundNumber int       `db:"round_number" json:"round_number"`
	Number      int       `db:"number" json:"number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Prize is claimable once. IsClaimed is a read-path cache; the winner unique key is authoritative.
type Prize struct {
	ID        uuid.UUID `db:"id" json:"id"`
	GameID    uuid.UUID `db:"game_id" json:"game_id"`
	Position  int       `db:"position" json:"position"`
	Name      string    `db:"name" json:"name"`
	IsClaimed bool      `db:"is_claimed" json:"is_claimed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Winner is immutable once created.
type Winner struct {
	ID          uuid.UUID `db:"id" json:"id"`
	GameID      uuid.UUID `db:"game_id" json:"game_id"`
	PrizeID     uuid.UUID `db:"prize_id" json:"prize_id"`
	CardID      uuid.UUID `db:"card_id" json:"card_id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	RoundNumber int       `db:"round_number" json:"round_number"`
	WonAt       time.Time `db:"won_at" json:"won_at"`
}

func toInts(a pq.Int64Array) []int {
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}

func toInt64Array(ns []int) pq.Int64Array {
	out := make(pq.Int64Array, len(ns))
	for i, v := range ns {
		out[i] = int64(v)
	}
	return out
}

package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
)

// CreateGameRequest for POST /games
type CreateGameRequest struct {
	PackageID       string `json:"package_id" validate:"required,uuid"`
	Name            string `json:"name" validate:"required,min=2,max=120"`
	DrawMode        string `json:"draw_mode" validate:"draw_mode"`
	AutoDrawSeconds int    `json:"auto_draw_seconds" validate:"omitempty,gte=3,lte=300"`
}

// UpdateGameRequest for PATCH /games/{id}
type UpdateGameRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=2,max=120"`
	DrawMode        *string `json:"draw_mode" validate:"omitempty,draw_mode"`
	AutoDrawSeconds *int    `json:"auto_draw_seconds" validate:"omitempty,gte=3,lte=300"`
}

// AddPrizeRequest for POST /games/{id}/prizes
type AddPrizeRequest struct {
	Position int    `json:"position" validate:"required,gte=1,lte=100"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
}

// JoinRequest for POST /games/join
type JoinRequest struct {
	InviteCode string `json:"invite_code" validate:"required,min=4,max=16"`
}

// MarkRequest for POST /games/{id}/cards/{cardID}/mark
type MarkRequest struct {
	Number int `json:"number" validate:"required,gte=1,lte=75"`
}

// ClaimRequest for POST /games/{id}/claims
type ClaimRequest struct {
	CardID  string `json:"card_id" validate:"required,uuid"`
	PrizeID string `json:"prize_id" validate:"required,uuid"`
}

// GameResponse represents game in API response
type GameResponse struct {
	ID              uuid.UUID  `json:"id"`
	CreatorID       uuid.UUID  `json:"creator_id"`
	PackageID       uuid.UUID  `json:"package_id"`
	Name            string     `json:"name"`
	Status          Status     `json:"status"`
	DrawMode        DrawMode   `json:"draw_mode"`
	AutoDrawSeconds int        `json:"auto_draw_seconds"`
	CurrentRound    int        `json:"current_round"`
	MaxRounds       int        `json:"max_rounds"`
	InviteCode      string     `json:"invite_code,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// GameResponseFromEntity converts entity to response. The invite code is only shown to the creator.
func GameResponseFromEntity(g *Game, viewerID uuid.UUID) *GameResponse {
	resp := &GameResponse{
		ID:              g.ID,
		CreatorID:       g.CreatorID,
		PackageID:       g.PackageID,
		Name:            g.Name,
		Status:          g.Status,
		DrawMode:        g.DrawMode,
		AutoDrawSeconds: g.AutoDrawSeconds,
		CurrentRound:    g.CurrentRound,
		MaxRounds:       g.MaxRounds,
		CreatedAt:       g.CreatedAt,
	}
	if g.IsCreator(viewerID) {
		resp.InviteCode = g.InviteCode
	}
	if g.StartedAt.Valid {
		resp.StartedAt = &g.StartedAt.Time
	}
	if g.FinishedAt.Valid {
		resp.FinishedAt = &g.FinishedAt.Time
	}
	return resp
}

// GameDetailResponse is the GET /games/{id} payload
type GameDetailResponse struct {
	*GameResponse
	Prizes      []*Prize  `json:"prizes"`
	Winners     []*Winner `json:"winners"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
}

// SeatResponse is returned after joining
type SeatResponse struct {
	GameID   uuid.UUID `json:"game_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Card     *Card     `json:"card"`
}

// DrawResponse is returned after a draw
type DrawResponse struct {
	Draw       *Draw       `json:"draw"`
	Drawn      []int       `json:"drawn"`
	Candidates []uuid.UUID `json:"bingo_card_ids"`
}

// DrawResponseFromResult converts draw result to response
func DrawResponseFromResult(res *DrawResult) *DrawResponse {
	ids := make([]uuid.UUID, len(res.Candidates))
	for i, c := range res.Candidates {
		ids[i] = c.ID
	}
	return &DrawResponse{Draw: res.Draw, Drawn: res.Drawn, Candidates: ids}
}

// DrawsResponse is the GET /games/{id}/draws payload: history in draw order plus the numeric grid.
type DrawsResponse struct {
	Round   int              `json:"round"`
	History []*Draw          `json:"history"`
	Last    *Draw            `json:"last,omitempty"`
	Grid    []bingo.GridCell `json:"grid"`
}

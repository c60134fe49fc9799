package game

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/validator"
)

// Handler handles game HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates game handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

var errorCases = []response.ErrorCase{
	{Err: ErrGameNotFound, Status: http.StatusNotFound, Code: "GAME_NOT_FOUND", Message: "Game not found"},
	{Err: ErrPackageNotFound, Status: http.StatusNotFound, Code: "PACKAGE_NOT_FOUND", Message: "Game package not found"},
	{Err: ErrPrizeNotFound, Status: http.StatusNotFound, Code: "PRIZE_NOT_FOUND", Message: "Prize not found"},
	{Err: ErrCardNotFound, Status: http.StatusNotFound, Code: "CARD_NOT_FOUND", Message: "Card not found"},
	{Err: ErrPlayerNotFound, Status: http.StatusNotFound, Code: "PLAYER_NOT_FOUND", Message: "Player not found"},
	{Err: ErrForbidden, Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "Only the game creator can do this"},
	{Err: ErrPackageInactive, Status: http.StatusConflict, Code: "PACKAGE_INACTIVE", Message: "Game package is not available"},
	{Err: ErrNotEditable, Status: http.StatusConflict, Code: "GAME_NOT_EDITABLE", Message: "Game can only be edited in draft"},
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Code: "INVALID_TRANSITION", Message: "Game cannot move to that status now"},
	{Err: ErrGameNotActive, Status: http.StatusConflict, Code: "GAME_NOT_ACTIVE", Message: "Game is not active"},
	{Err: ErrRoundClosed, Status: http.StatusConflict, Code: "ROUND_CLOSED", Message: "Round has already ended"},
	{Err: ErrNoPrizesConfigured, Status: http.StatusConflict, Code: "NO_PRIZES", Message: "Add at least one prize before publishing"},
	{Err: ErrNoPlayersPresent, Status: http.StatusConflict, Code: "NO_PLAYERS", Message: "At least one player must join before starting"},
	{Err: ErrCannotJoin, Status: http.StatusConflict, Code: "CANNOT_JOIN", Message: "Game is not accepting players"},
	{Err: ErrGameFull, Status: http.StatusConflict, Code: "GAME_FULL", Message: "Game is full"},
	{Err: ErrAlreadyClaimed, Status: http.StatusConflict, Code: "ALREADY_CLAIMED", Message: "Prize already claimed"},
	{Err: ErrInvalidReference, Status: http.StatusUnprocessableEntity, Code: "INVALID_REFERENCE", Message: "Card and prize must belong to this game"},
	{Err: ErrNotBingo, Status: http.StatusUnprocessableEntity, Code: "NOT_BINGO", Message: "Card has not completed bingo in this round"},
	{Err: ErrMaxRoundsReached, Status: http.StatusConflict, Code: "MAX_ROUNDS_REACHED", Message: "Maximum number of rounds reached"},
	{Err: ErrDuplicatePosition, Status: http.StatusConflict, Code: "DUPLICATE_POSITION", Message: "Prize position already used"},
	{Err: bingo.ErrNoNumbersRemaining, Status: http.StatusConflict, Code: "NO_NUMBERS_REMAINING", Message: "All numbers have been drawn in this round"},
	{Err: bingo.ErrNumberOutOfRange, Status: http.StatusUnprocessableEntity, Code: "NUMBER_OUT_OF_RANGE", Message: "Number must be between 1 and 75"},
	{Err: ledger.ErrInsufficientBalance, Status: http.StatusPaymentRequired, Code: "INSUFFICIENT_BALANCE", Message: "Not enough credits to create this game"},
	{Err: ledger.ErrWalletNotFound, Status: http.StatusPaymentRequired, Code: "WALLET_NOT_FOUND", Message: "No wallet found, top up credits first"},
	{Err: database.ErrLockTimeout, Status: http.StatusServiceUnavailable, Code: "LOCK_TIMEOUT", Message: "Resource busy, please retry"},
}

func writeError(w http.ResponseWriter, err error) {
	response.MapError(w, err, errorCases...)
}

func gameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid game ID")
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errors := validator.Validate(dst); errors != nil {
		response.ValidationError(w, errors)
		return false
	}
	return true
}

// Create handles POST /games
// @Summary Create a draft game from a package
// @Tags Game
// @Security BearerAuth
// @Param request body CreateGameRequest true "Game data"
// @Success 201 {object} response.Response{data=GameResponse}
// @Failure 400,402,404,409,422,500 {object} response.Response
// @Router /games [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if !decode(w, r, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	g, err := h.service.Create(r.Context(), userID, CreateInput{
		PackageID:       uuid.MustParse(req.PackageID),
		Name:            req.Name,
		DrawMode:        DrawMode(req.DrawMode),
		AutoDrawSeconds: req.AutoDrawSeconds,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, GameResponseFromEntity(g, userID))
}

// GetByID handles GET /games/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, &GameDetailResponse{
		GameResponse: GameResponseFromEntity(d.Game, middleware.GetUserID(r.Context())),
		Prizes:       d.Prizes,
		Winners:      d.Winners,
		PlayerCount:  d.PlayerCount,
		MaxPlayers:   d.MaxPlayers,
	})
}

// Update handles PATCH /games/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	var req UpdateGameRequest
	if !decode(w, r, &req) {
		return
	}

	in := UpdateDraftInput{Name: req.Name, AutoDrawSeconds: req.AutoDrawSeconds}
	if req.DrawMode != nil {
		mode := DrawMode(*req.DrawMode)
		in.DrawMode = &mode
	}

	userID := middleware.GetUserID(r.Context())
	g, err := h.service.UpdateDraft(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, GameResponseFromEntity(g, userID))
}

// AddPrize handles POST /games/{id}/prizes
func (h *Handler) AddPrize(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	var req AddPrizeRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.service.AddPrize(r.Context(), middleware.GetUserID(r.Context()), id, req.Position, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, p)
}

// RemovePrize handles DELETE /games/{id}/prizes/{prizeID}
func (h *Handler) RemovePrize(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	prizeID, err := uuid.Parse(chi.URLParam(r, "prizeID"))
	if err != nil {
		response.BadRequest(w, "Invalid prize ID")
		return
	}

	if err := h.service.RemovePrize(r.Context(), middleware.GetUserID(r.Context()), id, prizeID); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "deleted"})
}

// Join handles POST /games/join
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !decode(w, r, &req) {
		return
	}

	p, c, err := h.service.Join(r.Context(), middleware.GetUserID(r.Context()), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, &SeatResponse{GameID: p.GameID, PlayerID: p.ID, Card: c})
}

type transitionFunc func(h *Handler, r *http.Request, actorID, gameID uuid.UUID) (*Game, error)

// transition wraps the creator-only status endpoints.
func (h *Handler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := gameID(w, r)
		if !ok {
			return
		}
		userID := middleware.GetUserID(r.Context())
		g, err := fn(h, r, userID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.OK(w, GameResponseFromEntity(g, userID))
	}
}

func publish(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.Publish(r.Context(), actorID, id)
}

func start(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.Start(r.Context(), actorID, id)
}

func pause(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.Pause(r.Context(), actorID, id)
}

func resume(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.Resume(r.Context(), actorID, id)
}

func finish(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.Finish(r.Context(), actorID, id)
}

func nextRound(h *Handler, r *http.Request, actorID, id uuid.UUID) (*Game, error) {
	return h.service.NextRound(r.Context(), actorID, id)
}

// Draw handles POST /games/{id}/draw
// @Summary Draw the next number (creator only)
// @Tags Game
// @Security BearerAuth
// @Success 200 {object} response.Response{data=DrawResponse}
// @Failure 403,404,409,500 {object} response.Response
// @Router /games/{id}/draw [post]
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}

	res, err := h.service.DrawNumber(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, DrawResponseFromResult(res))
}

// Draws handles GET /games/{id}/draws?round=N
func (h *Handler) Draws(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	round, _ := strconv.Atoi(r.URL.Query().Get("round"))
	round, err := h.service.resolveRound(r.Context(), id, round)
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := h.service.History(r.Context(), id, round)
	if err != nil {
		writeError(w, err)
		return
	}
	grid, err := h.service.Grid(r.Context(), id, round)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := &DrawsResponse{Round: round, History: history, Grid: grid}
	if len(history) > 0 {
		resp.Last = history[len(history)-1]
	}
	response.OK(w, resp)
}

// Mark handles POST /games/{id}/cards/{cardID}/mark
func (h *Handler) Mark(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(chi.URLParam(r, "cardID"))
	if err != nil {
		response.BadRequest(w, "Invalid card ID")
		return
	}
	var req MarkRequest
	if !decode(w, r, &req) {
		return
	}

	card, err := h.service.MarkNumber(r.Context(), middleware.GetUserID(r.Context()), id, cardID, req.Number)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, card)
}

// Claim handles POST /games/{id}/claims
// @Summary Claim a prize for a completed card
// @Tags Game
// @Security BearerAuth
// @Param request body ClaimRequest true "Card and prize"
// @Success 201 {object} response.Response{data=Winner}
// @Failure 403,404,409,422,500 {object} response.Response
// @Router /games/{id}/claims [post]
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}
	var req ClaimRequest
	if !decode(w, r, &req) {
		return
	}

	winner, err := h.service.ClaimPrize(r.Context(), middleware.GetUserID(r.Context()), id,
		uuid.MustParse(req.CardID), uuid.MustParse(req.PrizeID))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, winner)
}

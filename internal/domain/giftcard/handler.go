package giftcard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/validator"
)

// Handler handles gift card HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates gift card handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

var errorCases = []response.ErrorCase{
	{Err: ErrNotRedeemable, Status: http.StatusConflict, Code: "NOT_REDEEMABLE", Message: "Gift card is invalid, used or expired"},
	{Err: ErrGiftCardNotFound, Status: http.StatusNotFound, Code: "GIFT_CARD_NOT_FOUND", Message: "Gift card not found"},
	{Err: ErrInvalidCreditValue, Status: http.StatusUnprocessableEntity, Code: "INVALID_CREDIT_VALUE", Message: "Credit value must be greater than 0"},
	{Err: ErrInvalidCount, Status: http.StatusUnprocessableEntity, Code: "INVALID_COUNT", Message: "Count must be between 1 and 100"},
	{Err: ErrInvalidExpiry, Status: http.StatusUnprocessableEntity, Code: "INVALID_EXPIRY", Message: "Expiry must be in the future"},
	{Err: ErrCannotDisable, Status: http.StatusConflict, Code: "CANNOT_DISABLE", Message: "Only active gift cards can be disabled"},
	{Err: ErrCannotReactivate, Status: http.StatusConflict, Code: "CANNOT_REACTIVATE", Message: "Only disabled or expired gift cards can be reactivated"},
	{Err: ErrCodeSpaceExhausted, Status: http.StatusServiceUnavailable, Code: "CODE_GENERATION_FAILED", Message: "Could not generate a unique code, please retry"},
	{Err: database.ErrLockTimeout, Status: http.StatusServiceUnavailable, Code: "LOCK_TIMEOUT", Message: "Resource busy, please retry"},
}

func writeError(w http.ResponseWriter, err error) {
	response.MapError(w, err, errorCases...)
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

func cardID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid gift card ID")
		return uuid.Nil, false
	}
	return id, true
}

// Redeem handles POST /gift-cards/redeem
// @Summary Redeem a gift card into the wallet
// @Tags GiftCard
// @Security BearerAuth
// @Param request body RedeemRequest true "Gift card code"
// @Success 200 {object} response.Response{data=RedeemResponse}
// @Failure 400,409,422,429,500 {object} response.Response
// @Router /gift-cards/redeem [post]
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Redeem(r.Context(), RedeemInput{
		Code:      req.Code,
		UserID:    middleware.GetUserID(r.Context()),
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, &RedeemResponse{
		GiftCardID:    res.GiftCard.ID,
		Credited:      res.GiftCard.CreditValue,
		Balance:       res.Transaction.BalanceAfter,
		TransactionID: res.Transaction.ID,
		RedeemedAt:    res.Redemption.RedeemedAt,
	})
}

// Issue handles POST /admin/gift-cards
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	cards, err := h.service.Issue(r.Context(), middleware.GetUserID(r.Context()), IssueInput{
		CreditValue: req.CreditValue,
		ExpiresAt:   req.ExpiresAt,
		Count:       req.Count,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]*GiftCardResponse, len(cards))
	for i, g := range cards {
		items[i] = GiftCardResponseFromEntity(g)
	}
	response.Created(w, items)
}

// List handles GET /admin/gift-cards
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	cards, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]*GiftCardResponse, len(cards))
	for i, g := range cards {
		items[i] = GiftCardResponseFromEntity(g)
	}
	response.OK(w, items)
}

// Get handles GET /admin/gift-cards/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(w, r)
	if !ok {
		return
	}
	g, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, GiftCardResponseFromEntity(g))
}

// Disable handles POST /admin/gift-cards/{id}/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(w, r)
	if !ok {
		return
	}
	g, err := h.service.Disable(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, GiftCardResponseFromEntity(g))
}

// Reactivate handles POST /admin/gift-cards/{id}/reactivate
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(w, r)
	if !ok {
		return
	}
	var req ReactivateRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	g, err := h.service.Reactivate(r.Context(), id, req.ExpiresAt)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, GiftCardResponseFromEntity(g))
}

package refund

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/validator"
)

// Handler handles refund HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates refund handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

var errorCases = []response.ErrorCase{
	{Err: ErrRefundNotFound, Status: http.StatusNotFound, Code: "REFUND_NOT_FOUND", Message: "Refund not found"},
	{Err: ErrAlreadyProcessed, Status: http.StatusConflict, Code: "ALREADY_PROCESSED", Message: "Refund was already processed"},
	{Err: ErrInvalidCredits, Status: http.StatusUnprocessableEntity, Code: "INVALID_CREDITS", Message: "Credits must be greater than 0"},
	{Err: ErrInvalidAmount, Status: http.StatusUnprocessableEntity, Code: "INVALID_AMOUNT", Message: "Amount must not be negative"},
	{Err: ledger.ErrInsufficientBalance, Status: http.StatusPaymentRequired, Code: "INSUFFICIENT_BALANCE", Message: "Wallet balance is lower than the refund"},
	{Err: ledger.ErrWalletNotFound, Status: http.StatusPaymentRequired, Code: "WALLET_NOT_FOUND", Message: "User has no wallet"},
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

func refundID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid refund ID")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Create handles POST /refunds
// @Summary Request a refund of wallet credits
// @Tags Refund
// @Security BearerAuth
// @Param request body CreateRefundRequest true "Refund data"
// @Success 201 {object} response.Response{data=RefundResponse}
// @Failure 400,402,422,500 {object} response.Response
// @Router /refunds [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRefundRequest
	if !decode(w, r, &req) {
		return
	}

	rf, err := h.service.Request(r.Context(), middleware.GetUserID(r.Context()), RequestInput{
		Credits:   req.Credits,
		AmountBRL: req.AmountBRL,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, RefundResponseFromEntity(rf))
}

// ListMine handles GET /refunds
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	refunds, err := h.service.ListByUser(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, responses(refunds))
}

// Get handles GET /refunds/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := refundID(w, r)
	if !ok {
		return
	}
	rf, err := h.service.GetForUser(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, RefundResponseFromEntity(rf))
}

// List handles GET /admin/refunds
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	refunds, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, responses(refunds))
}

// Approve handles POST /admin/refunds/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := refundID(w, r)
	if !ok {
		return
	}
	rf, err := h.service.Approve(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, RefundResponseFromEntity(rf))
}

// Reject handles POST /admin/refunds/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := refundID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if !decode(w, r, &req) {
		return
	}
	rf, err := h.service.Reject(r.Context(), middleware.GetUserID(r.Context()), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, RefundResponseFromEntity(rf))
}

// Routes returns the user-facing refund router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.Get)
	return r
}

// AdminRoutes returns the admin refund router
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	return r
}

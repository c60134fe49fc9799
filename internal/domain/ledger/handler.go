package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
)

var errorCases = []response.ErrorCase{
	{Err: ErrWalletNotFound, Status: http.StatusNotFound, Code: "WALLET_NOT_FOUND", Message: "Wallet not found"},
	{Err: ErrLedgerCorrupted, Status: http.StatusConflict, Code: "LEDGER_MISMATCH", Message: "Wallet balance does not match its ledger"},
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.MapError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	txs, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.MapError(w, err)
		return
	}

	response.OK(w, txs)
}

// Audit handles GET /admin/wallets/{userID}/audit
// @Summary Replay a wallet's ledger and compare it with the stored balance
// @Tags Admin Wallets
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/wallets/{userID}/audit [get]
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	balance, err := h.svc.Audit(r.Context(), userID)
	if err != nil {
		response.MapError(w, err, errorCases...)
		return
	}

	response.OK(w, map[string]interface{}{"user_id": userID, "balance": balance, "consistent": true})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	return r
}

// AdminRoutes returns wallet admin routes. Auth and role checks are applied by the parent router.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{userID}/audit", h.Audit)
	return r
}

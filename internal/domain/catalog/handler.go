package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/domain/coupon"
	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/validator"
)

// Handler handles credit package HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates catalog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

var errorCases = append([]response.ErrorCase{
	{Err: ErrPackageNotFound, Status: http.StatusNotFound, Code: "PACKAGE_NOT_FOUND", Message: "Credit package not found"},
	{Err: ErrPackageInactive, Status: http.StatusConflict, Code: "PACKAGE_INACTIVE", Message: "Credit package is not available"},
	{Err: ErrAlreadyProcessed, Status: http.StatusConflict, Code: "ALREADY_PROCESSED", Message: "Payment was already processed"},
	{Err: ErrInvalidPaymentRef, Status: http.StatusUnprocessableEntity, Code: "INVALID_PAYMENT_REF", Message: "Payment reference is required"},
	{Err: ErrInvalidPackageData, Status: http.StatusUnprocessableEntity, Code: "INVALID_PACKAGE", Message: "Package needs a name, positive credits and a non-negative price"},
	{Err: database.ErrLockTimeout, Status: http.StatusServiceUnavailable, Code: "LOCK_TIMEOUT", Message: "Resource busy, please retry"},
}, coupon.ErrorCases...)

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

// List handles GET /packages
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	packages, err := h.service.ListPackages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]*PackageResponse, len(packages))
	for i, p := range packages {
		items[i] = PackageResponseFromEntity(p)
	}
	response.OK(w, items)
}

// Purchase handles POST /packages/{id}/purchase
// @Summary Credit a confirmed package payment to the wallet
// @Tags Catalog
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Param request body PurchaseRequest true "Payment reference and optional coupon"
// @Success 201 {object} response.Response{data=PurchaseResponse}
// @Failure 400,404,409,422,500 {object} response.Response
// @Router /packages/{id}/purchase [post]
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid package ID")
		return
	}
	var req PurchaseRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Purchase(r.Context(), PurchaseInput{
		UserID:     middleware.GetUserID(r.Context()),
		PackageID:  id,
		CouponCode: req.CouponCode,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := PurchaseResponseFromEntity(res.Purchase)
	balance := res.Transaction.BalanceAfter
	resp.Balance = &balance
	response.Created(w, resp)
}

// Purchases handles GET /packages/purchases
func (h *Handler) Purchases(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	purchases, err := h.service.ListPurchases(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]*PurchaseResponse, len(purchases))
	for i, p := range purchases {
		items[i] = PurchaseResponseFromEntity(p)
	}
	response.OK(w, items)
}

// CreatePackage handles POST /admin/packages
func (h *Handler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.CreatePackage(r.Context(), CreatePackageInput{
		Name:     req.Name,
		Credits:  req.Credits,
		PriceBRL: req.PriceBRL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, PackageResponseFromEntity(p))
}

// Routes returns the user-facing catalog router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/purchases", h.Purchases)
	r.Post("/{id}/purchase", h.Purchase)
	return r
}

// AdminRoutes returns the admin catalog router
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreatePackage)
	return r
}

package coupon

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/validator"
)

// Handler handles coupon HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates coupon handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ErrorCases maps coupon errors; the catalog handler reuses them for purchases.
var ErrorCases = []response.ErrorCase{
	{Err: ErrCouponNotFound, Status: http.StatusNotFound, Code: "COUPON_NOT_FOUND", Message: "Coupon not found"},
	{Err: ErrCouponInactive, Status: http.StatusConflict, Code: "COUPON_INACTIVE", Message: "Coupon is not active"},
	{Err: ErrCouponExpired, Status: http.StatusConflict, Code: "COUPON_EXPIRED", Message: "Coupon has expired"},
	{Err: ErrMinOrderNotMet, Status: http.StatusUnprocessableEntity, Code: "MIN_ORDER_NOT_MET", Message: "Order value is below the coupon minimum"},
	{Err: ErrUsageLimitReached, Status: http.StatusConflict, Code: "COUPON_USAGE_LIMIT", Message: "Coupon usage limit reached"},
	{Err: ErrPerUserLimitReached, Status: http.StatusConflict, Code: "COUPON_USER_LIMIT", Message: "You already used this coupon the maximum number of times"},
	{Err: ErrAlreadyProcessed, Status: http.StatusConflict, Code: "ALREADY_PROCESSED", Message: "Coupon already applied to this order"},
	{Err: ErrInvalidDiscount, Status: http.StatusUnprocessableEntity, Code: "INVALID_DISCOUNT", Message: "Discount settings are invalid"},
	{Err: ErrCodeTaken, Status: http.StatusConflict, Code: "COUPON_CODE_TAKEN", Message: "Coupon code already exists"},
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

// Validate handles POST /coupons/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OrderValue.IsNegative() {
		response.ValidationError(w, map[string]string{"order_value": "Value must be at least 0"})
		return
	}

	q, err := h.service.Validate(r.Context(), req.Code, middleware.GetUserID(r.Context()), req.OrderValue)
	if err != nil {
		response.MapError(w, err, ErrorCases...)
		return
	}
	response.OK(w, QuoteResponseFromQuote(q))
}

// Create handles POST /admin/coupons
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), CreateInput{
		Code:          req.Code,
		DiscountType:  DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		UsageLimit:    req.UsageLimit,
		PerUserLimit:  req.PerUserLimit,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		response.MapError(w, err, ErrorCases...)
		return
	}
	response.Created(w, CouponResponseFromEntity(c))
}

// List handles GET /admin/coupons
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	coupons, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		response.MapError(w, err, ErrorCases...)
		return
	}
	items := make([]*CouponResponse, len(coupons))
	for i, c := range coupons {
		items[i] = CouponResponseFromEntity(c)
	}
	response.OK(w, items)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.BadRequest(w, "Invalid coupon ID")
			return
		}
		c, err := h.service.SetActive(r.Context(), id, active)
		if err != nil {
			response.MapError(w, err, ErrorCases...)
			return
		}
		response.OK(w, CouponResponseFromEntity(c))
	}
}

// Routes returns the user-facing coupon router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/validate", h.Validate)
	return r
}

// AdminRoutes returns the admin coupon router
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/activate", h.setActive(true))
	r.Post("/{id}/deactivate", h.setActive(false))
	return r
}

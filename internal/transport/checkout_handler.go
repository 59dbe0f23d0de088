package transport

import (
	"errors"
	"net/http"

	"shopdesk/internal/domain"
	"shopdesk/internal/middleware"
	"shopdesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentSplitRequest represents one part of a mixed payment
type PaymentSplitRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card transfer"`
	Amount string `json:"amount" validate:"required"`
}

// CheckoutRequest represents the complete-sale payload
type CheckoutRequest struct {
	PaymentMethod string                `json:"payment_method" validate:"required,oneof=cash card transfer mixed"`
	PaymentSplits []PaymentSplitRequest `json:"payment_splits" validate:"omitempty,dive"`
}

// CheckoutHandler handles HTTP requests for completing sales
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout route
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Checkout)
	})
}

// Checkout completes the operator's cart as a persisted sale. The operator
// identity comes from the verified token claims and is passed to the service
// explicitly.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	operator, ok := operatorIdentityFromContext(w, r, h.logger)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	splits := make([]domain.PaymentSplit, 0, len(req.PaymentSplits))
	for _, split := range req.PaymentSplits {
		amount, err := decimal.NewFromString(split.Amount)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "split amounts must be decimals")
			return
		}
		splits = append(splits, domain.PaymentSplit{
			Method: domain.PaymentMethod(split.Method),
			Amount: amount,
		})
	}

	sale, err := h.checkoutService.CompleteSale(r.Context(), operator, domain.PaymentMethod(req.PaymentMethod), splits)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "cart is empty")
		case errors.Is(err, domain.ErrNotAuthenticated):
			middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, service.ErrInvalidPayment):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrStockConflict):
			// Another terminal sold the stock first. The cart is preserved
			// so the operator can adjust it after a catalog refresh.
			h.logger.Warn("Checkout lost a stock race", zap.Error(err))
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to complete sale")
		}
		return
	}

	h.logger.Info("Sale completed",
		zap.String("sale_number", sale.SaleNumber),
		zap.String("operator_id", operator.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, toSaleResponse(sale))
}

// operatorIdentityFromContext builds the full operator identity from the
// verified token claims, writing the error response itself on failure.
func operatorIdentityFromContext(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (domain.OperatorIdentity, bool) {
	operatorID, ok := operatorIDFromContext(w, r, logger)
	if !ok {
		return domain.OperatorIdentity{}, false
	}

	name, ok := middleware.GetOperatorName(r.Context())
	if !ok {
		logger.Error("Operator name not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return domain.OperatorIdentity{}, false
	}

	return domain.OperatorIdentity{ID: operatorID, DisplayName: name}, true
}

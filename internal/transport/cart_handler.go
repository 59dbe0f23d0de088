package transport

import (
	"errors"
	"net/http"

	"shopdesk/internal/domain"
	"shopdesk/internal/middleware"
	"shopdesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddLineRequest represents the add-to-cart payload
type AddLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// SetQuantityRequest represents the change-line-quantity payload.
// A quantity of zero or less removes the line, so no lower bound here.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// DiscountRequest represents the cart discount payload
type DiscountRequest struct {
	Type  string `json:"type" validate:"required,oneof=none percentage fixed"`
	Value string `json:"value"`
}

// BuyerRequest represents the optional buyer details payload
type BuyerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// NoteRequest represents the cart note payload
type NoteRequest struct {
	Note string `json:"note"`
}

// CartLineResponse represents one cart line
type CartLineResponse struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	SKU       string `json:"sku"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// CartResponse represents the operator's cart with computed totals
type CartResponse struct {
	Lines          []CartLineResponse `json:"lines"`
	DiscountType   string             `json:"discount_type"`
	DiscountValue  string             `json:"discount_value,omitempty"`
	BuyerName      string             `json:"buyer_name,omitempty"`
	BuyerPhone     string             `json:"buyer_phone,omitempty"`
	Note           string             `json:"note,omitempty"`
	Subtotal       string             `json:"subtotal"`
	DiscountAmount string             `json:"discount_amount"`
	Total          string             `json:"total"`
}

// CartHandler handles HTTP requests for the operator's in-progress cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes; every route is per-operator and
// requires authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.SetQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Put("/discount", h.SetDiscount)
		r.Put("/buyer", h.SetBuyer)
		r.Put("/note", h.SetNote)
	})
}

// Get returns the operator's cart with computed totals
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// AddItem adds a catalog item to the cart, merging with an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	var req AddLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := h.cartService.AddItem(operatorID, itemID, req.Quantity); err != nil {
		h.respondCartError(w, err)
		return
	}

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// SetQuantity replaces a line's quantity; zero or less removes the line
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req SetQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.cartService.SetQuantity(operatorID, itemID, req.Quantity); err != nil {
		h.respondCartError(w, err)
		return
	}

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// RemoveItem drops a line from the cart; absent lines are a no-op
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	h.cartService.RemoveItem(operatorID, itemID)

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// SetDiscount replaces the cart-level discount
func (h *CartHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	var req DiscountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value := decimal.Zero
	if req.Value != "" {
		parsed, err := decimal.NewFromString(req.Value)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "discount value must be a decimal")
			return
		}
		value = parsed
	}

	if err := h.cartService.SetDiscount(operatorID, domain.DiscountType(req.Type), value); err != nil {
		h.respondCartError(w, err)
		return
	}

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// SetBuyer attaches optional buyer details to the cart
func (h *CartHandler) SetBuyer(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	var req BuyerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.cartService.SetBuyer(operatorID, req.Name, req.Phone)

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// SetNote attaches a free-form note to the cart
func (h *CartHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	var req NoteRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.cartService.SetNote(operatorID, req.Note)

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// Clear empties the cart and resets discount, buyer and note
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorIDFromContext(w, r, h.logger)
	if !ok {
		return
	}

	h.cartService.Clear(operatorID)

	cart, totals := h.cartService.Cart(operatorID)
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart, totals))
}

// respondCartError maps cart domain errors onto HTTP statuses
func (h *CartHandler) respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotInCatalog):
		middleware.RespondWithError(w, http.StatusNotFound, "item not found in catalog")
	case errors.Is(err, domain.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrItemNotSellable):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidDiscount):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Cart operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart operation failed")
	}
}

func toCartResponse(cart *domain.Cart, totals domain.Totals) CartResponse {
	lines := make([]CartLineResponse, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, CartLineResponse{
			ItemID:    line.ItemID.String(),
			ItemName:  line.ItemName,
			SKU:       line.SKU,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}

	resp := CartResponse{
		Lines:          lines,
		DiscountType:   string(cart.Discount.Type),
		BuyerName:      cart.BuyerName,
		BuyerPhone:     cart.BuyerPhone,
		Note:           cart.Note,
		Subtotal:       totals.Subtotal.StringFixed(2),
		DiscountAmount: totals.DiscountAmount.StringFixed(2),
		Total:          totals.Total.StringFixed(2),
	}
	if cart.Discount.Type != domain.DiscountNone {
		resp.DiscountValue = cart.Discount.Value.String()
	}
	return resp
}

// operatorIDFromContext resolves the authenticated operator's UUID, writing
// the error response itself when the claims are unusable.
func operatorIDFromContext(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	operatorIDStr, ok := middleware.GetOperatorID(r.Context())
	if !ok {
		logger.Error("Operator ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	operatorID, err := uuid.Parse(operatorIDStr)
	if err != nil {
		logger.Error("Invalid operator ID format", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid operator ID")
		return uuid.Nil, false
	}

	return operatorID, true
}

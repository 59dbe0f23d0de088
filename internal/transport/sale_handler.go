package transport

import (
	"errors"
	"net/http"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/middleware"
	"shopdesk/internal/repository"
	"shopdesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleResponse represents a completed sale
type SaleResponse struct {
	ID             string                 `json:"id"`
	SaleNumber     string                 `json:"sale_number"`
	Lines          []CartLineResponse     `json:"lines"`
	Subtotal       string                 `json:"subtotal"`
	DiscountType   string                 `json:"discount_type"`
	DiscountValue  string                 `json:"discount_value,omitempty"`
	DiscountAmount string                 `json:"discount_amount"`
	Total          string                 `json:"total"`
	PaymentMethod  string                 `json:"payment_method"`
	PaymentSplits  []PaymentSplitResponse `json:"payment_splits,omitempty"`
	BuyerName      string                 `json:"buyer_name,omitempty"`
	BuyerPhone     string                 `json:"buyer_phone,omitempty"`
	OperatorID     string                 `json:"operator_id"`
	OperatorName   string                 `json:"operator_name"`
	Note           string                 `json:"note,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// PaymentSplitResponse represents one part of a mixed payment
type PaymentSplitResponse struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

// SaleListResponse represents a paginated sale listing
type SaleListResponse struct {
	Sales    []SaleResponse `json:"sales"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// SaleHandler handles HTTP requests for completed sales
type SaleHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(checkoutService service.CheckoutService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)
		r.Get("/number/{saleNumber}", h.GetByNumber)
	})
}

// List returns completed sales, optionally bounded by creation time.
// from and to accept RFC 3339 timestamps.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
			return
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
			return
		}
		to = &parsed
	}

	page, pageSize := parsePagination(r)
	sales, total, err := h.checkoutService.ListSales(r.Context(), from, to, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	responses := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		responses = append(responses, toSaleResponse(sale))
	}

	middleware.RespondWithJSON(w, http.StatusOK, SaleListResponse{
		Sales:    responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetByID returns one sale by ID
func (h *SaleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	sale, err := h.checkoutService.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.logger.Error("Failed to get sale", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toSaleResponse(sale))
}

// GetByNumber returns one sale by its receipt number
func (h *SaleHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	saleNumber := chi.URLParam(r, "saleNumber")

	sale, err := h.checkoutService.GetSaleByNumber(r.Context(), saleNumber)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.logger.Error("Failed to get sale", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toSaleResponse(sale))
}

func toSaleResponse(sale *domain.SaleRecord) SaleResponse {
	lines := make([]CartLineResponse, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		lines = append(lines, CartLineResponse{
			ItemID:    line.ItemID.String(),
			ItemName:  line.ItemName,
			SKU:       line.SKU,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}

	splits := make([]PaymentSplitResponse, 0, len(sale.PaymentSplits))
	for _, split := range sale.PaymentSplits {
		splits = append(splits, PaymentSplitResponse{
			Method: string(split.Method),
			Amount: split.Amount.StringFixed(2),
		})
	}

	resp := SaleResponse{
		ID:             sale.ID.String(),
		SaleNumber:     sale.SaleNumber,
		Lines:          lines,
		Subtotal:       sale.Subtotal.StringFixed(2),
		DiscountType:   string(sale.DiscountType),
		DiscountAmount: sale.DiscountAmount.StringFixed(2),
		Total:          sale.Total.StringFixed(2),
		PaymentMethod:  string(sale.PaymentMethod),
		PaymentSplits:  splits,
		BuyerName:      sale.BuyerName,
		BuyerPhone:     sale.BuyerPhone,
		OperatorID:     sale.OperatorID.String(),
		OperatorName:   sale.OperatorName,
		Note:           sale.Note,
		CreatedAt:      sale.CreatedAt,
	}
	if sale.DiscountType != domain.DiscountNone {
		resp.DiscountValue = sale.DiscountValue.String()
	}
	return resp
}

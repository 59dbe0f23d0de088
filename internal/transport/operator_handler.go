package transport

import (
	"encoding/json"
	"net/http"

	"shopdesk/internal/middleware"
	"shopdesk/internal/repository"
	"shopdesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRequest represents the operator registration request payload
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required"`
	Role        string `json:"role" validate:"omitempty,oneof=cashier admin"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Operator     OperatorProfile `json:"operator"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// OperatorProfile represents operator profile data
type OperatorProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// OperatorHandler handles HTTP requests for operator account operations
type OperatorHandler struct {
	operatorService service.OperatorService
	logger          *zap.Logger
}

// NewOperatorHandler creates a new OperatorHandler
func NewOperatorHandler(operatorService service.OperatorService, logger *zap.Logger) *OperatorHandler {
	return &OperatorHandler{
		operatorService: operatorService,
		logger:          logger,
	}
}

// RegisterRoutes registers all operator routes
func (h *OperatorHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/operators", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})
}

// Register handles operator registration
func (h *OperatorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	// Decode and validate request
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))

		// Check if it's a validation error
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		// JSON decode error
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Call service
	operator, err := h.operatorService.Register(r.Context(), req.Email, req.Password, req.DisplayName, req.Role)
	if err != nil {
		h.logger.Error("Registration failed", zap.Error(err))

		if err == repository.ErrOperatorAlreadyExists {
			middleware.RespondWithError(w, http.StatusConflict, "operator with this email already exists")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register operator")
		return
	}

	// Return operator profile
	profile := OperatorProfile{
		ID:          operator.ID.String(),
		Email:       operator.Email,
		DisplayName: operator.DisplayName,
		Role:        operator.Role,
	}

	h.logger.Info("Operator registered successfully", zap.String("operator_id", operator.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, profile)
}

// Login handles operator authentication
func (h *OperatorHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	// Decode and validate request
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Call service
	accessToken, refreshToken, operator, err := h.operatorService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))

		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	// Return tokens and operator profile
	response := LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Operator: OperatorProfile{
			ID:          operator.ID.String(),
			Email:       operator.Email,
			DisplayName: operator.DisplayName,
			Role:        operator.Role,
		},
	}

	h.logger.Info("Operator logged in successfully", zap.String("operator_id", operator.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Logout handles operator logout
func (h *OperatorHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	// Decode request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Logout decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Call service
	if err := h.operatorService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.logger.Info("Operator logged out successfully")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// RefreshToken handles token refresh
func (h *OperatorHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	// Decode and validate request
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Refresh token validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Call service
	newAccessToken, err := h.operatorService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))

		if err == service.ErrInvalidToken {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		if err == service.ErrTokenExpired {
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	// Return new access token
	response := RefreshResponse{
		AccessToken: newAccessToken,
	}

	h.logger.Info("Token refreshed successfully")
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProfile handles getting the authenticated operator's profile
func (h *OperatorHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	// Extract operator ID from context (set by auth middleware)
	operatorIDStr, ok := middleware.GetOperatorID(r.Context())
	if !ok {
		h.logger.Error("Operator ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Parse operator ID
	operatorID, err := uuid.Parse(operatorIDStr)
	if err != nil {
		h.logger.Error("Invalid operator ID format", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid operator ID")
		return
	}

	// Get operator from service
	operator, err := h.operatorService.GetOperatorByID(r.Context(), operatorID)
	if err != nil {
		h.logger.Error("Failed to get operator profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get operator profile")
		return
	}

	// Return operator profile
	profile := OperatorProfile{
		ID:          operator.ID.String(),
		Email:       operator.Email,
		DisplayName: operator.DisplayName,
		Role:        operator.Role,
	}

	middleware.RespondWithJSON(w, http.StatusOK, profile)
}

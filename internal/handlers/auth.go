package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bastionauth/bastion/internal/models"
	pkghttp "github.com/bastionauth/bastion/pkg/http"
)

// LoginServiceInterface defines the interface for login arbitration
type LoginServiceInterface interface {
	Login(ctx context.Context, email, password, address string) (*models.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service LoginServiceInterface
	env     string
}

// NewAuthHandler creates a new AuthHandler. env selects how much internal
// error detail the 500 path exposes.
func NewAuthHandler(service LoginServiceInterface, env string) *AuthHandler {
	return &AuthHandler{
		service: service,
		env:     env,
	}
}

// LoginRequest represents the request body for login. The client address
// travels in the body so that deployments behind proxies can forward the
// address the edge resolved.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"ip" validate:"required"`
}

// LoginData is the success payload: the signed token plus the public
// account projection.
type LoginData struct {
	Token string                `json:"token"`
	User  *models.PublicProfile `json:"user"`
}

const (
	msgFieldsRequired = "Email, password, and IP are required."
	msgInternalError  = "An unexpected error occurred. Please try again later."
)

// Login handles a login attempt.
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} pkghttp.Envelope
// @Failure 400 {object} pkghttp.Envelope
// @Failure 401 {object} pkghttp.Envelope
// @Failure 423 {object} pkghttp.Envelope
// @Failure 429 {object} pkghttp.Envelope
// @Failure 500 {object} pkghttp.Envelope
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteError(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteError(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.IP)
	if err != nil {
		// Store or verifier fault; never a credential decision.
		if h.env == "production" {
			pkghttp.WriteError(w, http.StatusInternalServerError, msgInternalError)
		} else {
			pkghttp.WriteErrorWithDetails(w, http.StatusInternalServerError, msgInternalError, err.Error())
		}
		return
	}

	switch result.Outcome {
	case models.LoginSuccess:
		pkghttp.WriteSuccess(w, http.StatusOK, result.Message, LoginData{
			Token: result.Token,
			User:  result.Account,
		})
	case models.LoginInvalidInput:
		pkghttp.WriteError(w, http.StatusBadRequest, result.Message)
	case models.LoginInvalidCredential:
		pkghttp.WriteError(w, http.StatusUnauthorized, result.Message)
	case models.LoginAccountSuspended:
		pkghttp.WriteError(w, http.StatusLocked, result.Message)
	case models.LoginAddressBlocked:
		pkghttp.WriteError(w, http.StatusTooManyRequests, result.Message)
	default:
		pkghttp.WriteError(w, http.StatusInternalServerError, msgInternalError)
	}
}

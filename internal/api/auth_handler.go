package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the auth service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- DTOs ---

// LoginRequest defines the expected JSON for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse is the DTO for returning account details.
type AccountResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CoachID   string      `json:"coachId,omitempty"`
	RoutineID string      `json:"routineId,omitempty"`
}

// LoginResponse bundles the bearer token with the account it identifies.
type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

// MapAccountToResponse converts a domain.Account to AccountResponse DTO.
func MapAccountToResponse(a *domain.Account) AccountResponse {
	if a == nil {
		return AccountResponse{}
	}
	resp := AccountResponse{
		ID:    a.ID.Hex(),
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
	}
	if a.CoachID != nil {
		resp.CoachID = a.CoachID.Hex()
	}
	if a.RoutineID != nil {
		resp.RoutineID = a.RoutineID.Hex()
	}
	return resp
}

// Login authenticates an account and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Kind:    "validation",
			Message: err.Error(),
		}})
		return
	}

	token, account, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		Account: MapAccountToResponse(account),
	})
}

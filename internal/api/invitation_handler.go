package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// InvitationHandler holds the invitation service dependency.
type InvitationHandler struct {
	invitationService service.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// --- DTOs ---

// IssueInvitationRequest defines the expected JSON for issuing a code.
// Validity is a Go duration string; empty means the configured default.
type IssueInvitationRequest struct {
	Validity string `json:"validity"`
}

// RedeemInvitationRequest carries the new coach's account details.
type RedeemInvitationRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// InvitationResponse is the DTO for returning invitation code details.
type InvitationResponse struct {
	CodeID    string     `json:"codeId"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	IssuedBy  string     `json:"issuedBy"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	UsedBy    string     `json:"usedBy,omitempty"`
}

// RedeemInvitationResponse bundles the consumed code with the coach it created.
type RedeemInvitationResponse struct {
	Invitation InvitationResponse `json:"invitation"`
	Coach      AccountResponse    `json:"coach"`
}

// MapInvitationToResponse converts a domain.InvitationCode to its DTO.
func MapInvitationToResponse(code *domain.InvitationCode) InvitationResponse {
	if code == nil {
		return InvitationResponse{}
	}
	resp := InvitationResponse{
		CodeID:    code.CodeID,
		Code:      code.Code,
		Status:    string(code.Status),
		IssuedBy:  code.IssuedBy.Hex(),
		CreatedAt: code.CreatedAt,
		ExpiresAt: code.ExpiresAt,
		UsedAt:    code.UsedAt,
	}
	if code.UsedBy != nil {
		resp.UsedBy = code.UsedBy.Hex()
	}
	return resp
}

// --- Handler Methods ---

// Issue creates a new invitation code. Admin only.
func (h *InvitationHandler) Issue(c *gin.Context) {
	var req IssueInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	var validity time.Duration
	if req.Validity != "" {
		parsed, err := time.ParseDuration(req.Validity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
				Kind:    "validation",
				Field:   "validity",
				Message: "validity must be a duration string like 168h",
			}})
			return
		}
		validity = parsed
	}

	adminID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify admin from token")
		return
	}

	code, err := h.invitationService.Issue(c.Request.Context(), adminID, validity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapInvitationToResponse(code))
}

// List returns every code the admin issued, with current states.
func (h *InvitationHandler) List(c *gin.Context) {
	adminID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify admin from token")
		return
	}

	codes, err := h.invitationService.ListIssued(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]InvitationResponse, len(codes))
	for i := range codes {
		responses[i] = MapInvitationToResponse(&codes[i])
	}
	c.JSON(http.StatusOK, responses)
}

// Redeem consumes a code and creates the coach account it authorizes.
// Public endpoint: the redeemer has no credentials yet.
func (h *InvitationHandler) Redeem(c *gin.Context) {
	var req RedeemInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	code := c.Param("code")
	invitation, coach, err := h.invitationService.Redeem(c.Request.Context(), code, service.CoachPayload{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RedeemInvitationResponse{
		Invitation: MapInvitationToResponse(invitation),
		Coach:      MapAccountToResponse(coach),
	})
}

// Revoke forces a valid code to expired. Admin only.
func (h *InvitationHandler) Revoke(c *gin.Context) {
	adminID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify admin from token")
		return
	}

	code, err := h.invitationService.Revoke(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInvitationToResponse(code))
}

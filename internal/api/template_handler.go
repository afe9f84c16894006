package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateHandler holds the template service dependency.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs ---

// TemplateRequest defines the expected JSON for creating or updating a template.
type TemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	MuscleGroup string `json:"muscleGroup"`
	Technique   string `json:"technique"`
	Difficulty  string `json:"difficulty"`
	VideoRef    string `json:"videoRef" binding:"omitempty"`
}

// AttachVideoRequest announces the file a coach is about to upload.
type AttachVideoRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// TemplateResponse is the DTO for returning template details.
type TemplateResponse struct {
	ID          string    `json:"id"`
	CoachID     string    `json:"coachId"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup,omitempty"`
	Technique   string    `json:"technique,omitempty"`
	Difficulty  string    `json:"difficulty,omitempty"`
	VideoRef    string    `json:"videoRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MapTemplateToResponse converts a domain.ExerciseTemplate to its DTO.
func MapTemplateToResponse(t *domain.ExerciseTemplate) TemplateResponse {
	if t == nil {
		return TemplateResponse{}
	}
	return TemplateResponse{
		ID:          t.ID.Hex(),
		CoachID:     t.CoachID.Hex(),
		Name:        t.Name,
		MuscleGroup: t.MuscleGroup,
		Technique:   t.Technique,
		Difficulty:  t.Difficulty,
		VideoRef:    t.VideoRef,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// --- Handler Methods ---

// Create adds a template to the coach's library.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}

	template, err := h.templateService.Create(c.Request.Context(), coachID, domain.ExerciseTemplate{
		Name:        req.Name,
		MuscleGroup: req.MuscleGroup,
		Technique:   req.Technique,
		Difficulty:  req.Difficulty,
		VideoRef:    req.VideoRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapTemplateToResponse(template))
}

// List returns the coach's templates.
func (h *TemplateHandler) List(c *gin.Context) {
	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}

	templates, err := h.templateService.List(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TemplateResponse, len(templates))
	for i := range templates {
		responses[i] = MapTemplateToResponse(&templates[i])
	}
	c.JSON(http.StatusOK, responses)
}

// Update rewrites a template the coach owns.
func (h *TemplateHandler) Update(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "id", Message: "invalid template id"}})
		return
	}

	template, err := h.templateService.Update(c.Request.Context(), coachID, domain.ExerciseTemplate{
		ID:          templateID,
		Name:        req.Name,
		MuscleGroup: req.MuscleGroup,
		Technique:   req.Technique,
		Difficulty:  req.Difficulty,
		VideoRef:    req.VideoRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapTemplateToResponse(template))
}

// Delete removes a template along with any attached demo video.
func (h *TemplateHandler) Delete(c *gin.Context) {
	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "id", Message: "invalid template id"}})
		return
	}

	if err := h.templateService.Delete(c.Request.Context(), coachID, templateID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AttachVideo hands back a presigned upload URL for a demo video.
func (h *TemplateHandler) AttachVideo(c *gin.Context) {
	var req AttachVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "id", Message: "invalid template id"}})
		return
	}

	grant, err := h.templateService.AttachVideo(c.Request.Context(), coachID, templateID, req.FileName, req.ContentType, req.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// VideoDownloadURL returns a presigned GET URL for the template's video.
func (h *TemplateHandler) VideoDownloadURL(c *gin.Context) {
	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "id", Message: "invalid template id"}})
		return
	}

	url, err := h.templateService.VideoDownloadURL(c.Request.Context(), coachID, templateID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

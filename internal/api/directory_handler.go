package api

import (
	"alumbra/coaching-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DirectoryHandler holds the directory service dependency.
type DirectoryHandler struct {
	directoryService service.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(directoryService service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService}
}

// --- DTOs ---

// AddStudentRequest defines the expected JSON for provisioning a student.
type AddStudentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// ReassignStudentRequest moves a student to a new coach.
type ReassignStudentRequest struct {
	NewCoachID string `json:"newCoachId" binding:"required"`
}

// --- Handler Methods ---

// AddStudent creates a student account owned by the calling coach.
func (h *DirectoryHandler) AddStudent(c *gin.Context) {
	var req AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}

	student, err := h.directoryService.AddStudent(c.Request.Context(), coachID, service.StudentPayload{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapAccountToResponse(student))
}

// ListStudents returns the coach's owned students.
func (h *DirectoryHandler) ListStudents(c *gin.Context) {
	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}

	students, err := h.directoryService.ListStudents(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]AccountResponse, len(students))
	for i := range students {
		responses[i] = MapAccountToResponse(&students[i])
	}
	c.JSON(http.StatusOK, responses)
}

// ReassignStudent moves a student to a new coach. Admin only.
func (h *DirectoryHandler) ReassignStudent(c *gin.Context) {
	var req ReassignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	adminID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify admin from token")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "studentId", Message: "invalid student id"}})
		return
	}
	newCoachID, err := primitive.ObjectIDFromHex(req.NewCoachID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "newCoachId", Message: "invalid coach id"}})
		return
	}

	student, err := h.directoryService.ReassignStudent(c.Request.Context(), adminID, studentID, newCoachID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapAccountToResponse(student))
}

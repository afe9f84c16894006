package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressHandler holds the progress service dependency.
type ProgressHandler struct {
	progressService service.ProgressService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// --- DTOs ---

// ExerciseProgressRequest records actuals against one planned unit.
// No volume field: actual volume is always derived server-side.
type ExerciseProgressRequest struct {
	ExerciseName  string  `json:"exerciseName" binding:"required"`
	DayIndex      int     `json:"dayIndex" binding:"min=0"`
	BlockIndex    int     `json:"blockIndex" binding:"min=0"`
	ExerciseIndex int     `json:"exerciseIndex" binding:"min=0"`
	ActualWeight  float64 `json:"actualWeight" binding:"min=0"`
	ActualReps    int     `json:"actualReps" binding:"required,min=1"`
	ActualSeries  *int    `json:"actualSeries" binding:"omitempty,min=1"`
}

type DayProgressRequest struct {
	Date        time.Time                 `json:"date" binding:"required"`
	Observation string                    `json:"observation"`
	Exercises   []ExerciseProgressRequest `json:"exercises" binding:"required"`
}

// RecordWeekRequest defines the expected JSON for recording or amending a week.
type RecordWeekRequest struct {
	Days []DayProgressRequest `json:"days" binding:"required"`
}

// UpdateObservationRequest edits the free text of one recorded day.
type UpdateObservationRequest struct {
	Observation string `json:"observation"`
}

// WeekProgressResponse is the DTO for returning one recorded week.
type WeekProgressResponse struct {
	ID         string               `json:"id"`
	StudentID  string               `json:"studentId"`
	Week       int                  `json:"week"`
	Revision   int                  `json:"revision"`
	Days       []domain.DayProgress `json:"days"`
	RecordedAt time.Time            `json:"recordedAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// VolumeResponse carries an aggregate volume over a week range.
type VolumeResponse struct {
	StudentID string  `json:"studentId"`
	FromWeek  int     `json:"fromWeek"`
	ToWeek    int     `json:"toWeek"`
	Volume    float64 `json:"volume"`
}

// MapWeekProgressToResponse converts a domain.WeekProgress to its DTO.
func MapWeekProgressToResponse(w *domain.WeekProgress) WeekProgressResponse {
	if w == nil {
		return WeekProgressResponse{}
	}
	return WeekProgressResponse{
		ID:         w.ID.Hex(),
		StudentID:  w.StudentID.Hex(),
		Week:       w.Week,
		Revision:   w.Revision,
		Days:       w.Days,
		RecordedAt: w.RecordedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

func mapDayProgressRequests(reqs []DayProgressRequest) []domain.DayProgress {
	days := make([]domain.DayProgress, len(reqs))
	for di, dayReq := range reqs {
		exercises := make([]domain.ExerciseProgress, len(dayReq.Exercises))
		for ei, exReq := range dayReq.Exercises {
			exercises[ei] = domain.ExerciseProgress{
				ExerciseName:  exReq.ExerciseName,
				DayIndex:      exReq.DayIndex,
				BlockIndex:    exReq.BlockIndex,
				ExerciseIndex: exReq.ExerciseIndex,
				ActualWeight:  exReq.ActualWeight,
				ActualReps:    exReq.ActualReps,
				ActualSeries:  exReq.ActualSeries,
			}
		}
		days[di] = domain.DayProgress{
			Date:        dayReq.Date,
			Observation: dayReq.Observation,
			Exercises:   exercises,
		}
	}
	return days
}

func callerFromContext(c *gin.Context) (primitive.ObjectID, domain.Role, bool) {
	callerID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify caller from token")
		return primitive.NilObjectID, "", false
	}
	role, err := getAccountRoleFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify caller role from token")
		return primitive.NilObjectID, "", false
	}
	return callerID, role, true
}

func studentIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "studentId", Message: "invalid student id"}})
		return primitive.NilObjectID, false
	}
	return studentID, true
}

// writeScope gates ledger mutations: only the student itself may write.
func writeScope(c *gin.Context) (primitive.ObjectID, bool) {
	studentID, ok := studentIDParam(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	callerID, role, ok := callerFromContext(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	if role != domain.RoleStudent || callerID != studentID {
		c.JSON(http.StatusForbidden, gin.H{"error": errorBody{
			Kind:    "forbidden",
			Field:   "studentId",
			Message: "only the student may write its own progress",
		}})
		return primitive.NilObjectID, false
	}
	return studentID, true
}

// readScope gates ledger reads: the student itself, the owning coach, or
// an admin.
func (h *ProgressHandler) readScope(c *gin.Context) (primitive.ObjectID, bool) {
	studentID, ok := studentIDParam(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	callerID, role, ok := callerFromContext(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	if err := h.progressService.AuthorizeRead(c.Request.Context(), callerID, role, studentID); err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	return studentID, true
}

func weekParam(c *gin.Context) (int, bool) {
	week, err := strconv.Atoi(c.Param("n"))
	if err != nil || week < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "week", Message: "week must be a positive integer"}})
		return 0, false
	}
	return week, true
}

func rangeParams(c *gin.Context) (int, int, bool) {
	var fromWeek, toWeek int
	var err error
	if raw := c.Query("from"); raw != "" {
		if fromWeek, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "from", Message: "from must be an integer"}})
			return 0, 0, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		if toWeek, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "to", Message: "to must be an integer"}})
			return 0, 0, false
		}
	}
	return fromWeek, toWeek, true
}

// --- Handler Methods ---

// RecordWeek appends one week of actuals to the student's ledger.
func (h *ProgressHandler) RecordWeek(c *gin.Context) {
	studentID, ok := writeScope(c)
	if !ok {
		return
	}
	week, ok := weekParam(c)
	if !ok {
		return
	}

	var req RecordWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	progress, err := h.progressService.RecordWeek(c.Request.Context(), studentID, week, mapDayProgressRequests(req.Days))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapWeekProgressToResponse(progress))
}

// AmendWeek replaces an already recorded week with a corrected tree.
func (h *ProgressHandler) AmendWeek(c *gin.Context) {
	studentID, ok := writeScope(c)
	if !ok {
		return
	}
	week, ok := weekParam(c)
	if !ok {
		return
	}

	var req RecordWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	progress, err := h.progressService.AmendWeek(c.Request.Context(), studentID, week, mapDayProgressRequests(req.Days))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWeekProgressToResponse(progress))
}

// UpdateObservation edits the free-text observation of one recorded day.
func (h *ProgressHandler) UpdateObservation(c *gin.Context) {
	studentID, ok := writeScope(c)
	if !ok {
		return
	}
	week, ok := weekParam(c)
	if !ok {
		return
	}
	dayIndex, err := strconv.Atoi(c.Param("d"))
	if err != nil || dayIndex < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "dayIndex", Message: "day index must be a non-negative integer"}})
		return
	}

	var req UpdateObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	progress, err := h.progressService.UpdateObservation(c.Request.Context(), studentID, week, dayIndex, req.Observation)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWeekProgressToResponse(progress))
}

// GetHistory returns the recorded weeks, optionally narrowed by ?from=&to=.
func (h *ProgressHandler) GetHistory(c *gin.Context) {
	studentID, ok := h.readScope(c)
	if !ok {
		return
	}
	fromWeek, toWeek, ok := rangeParams(c)
	if !ok {
		return
	}

	weeks, err := h.progressService.GetHistory(c.Request.Context(), studentID, fromWeek, toWeek)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]WeekProgressResponse, len(weeks))
	for i := range weeks {
		responses[i] = MapWeekProgressToResponse(&weeks[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetVolume returns the aggregate actual volume over an inclusive range.
func (h *ProgressHandler) GetVolume(c *gin.Context) {
	studentID, ok := h.readScope(c)
	if !ok {
		return
	}
	fromWeek, toWeek, ok := rangeParams(c)
	if !ok {
		return
	}

	volume, err := h.progressService.AggregateVolume(c.Request.Context(), studentID, fromWeek, toWeek)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VolumeResponse{
		StudentID: studentID.Hex(),
		FromWeek:  fromWeek,
		ToWeek:    toWeek,
		Volume:    volume,
	})
}

package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoutineHandler holds the routine service dependency.
type RoutineHandler struct {
	routineService service.RoutineService
}

// NewRoutineHandler creates a new RoutineHandler.
func NewRoutineHandler(routineService service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineService: routineService}
}

// --- DTOs ---

// ExerciseUnitRequest is one prescribed exercise in a create/replace
// request. No volume field: volume is always derived server-side.
type ExerciseUnitRequest struct {
	Name        string   `json:"name" binding:"required"`
	VideoRef    string   `json:"videoRef" binding:"omitempty"`
	Series      int      `json:"series" binding:"required,min=1"`
	Reps        int      `json:"reps" binding:"required,min=1"`
	Weight      *float64 `json:"weight" binding:"omitempty"`
	RestSeconds int      `json:"restSeconds" binding:"omitempty,min=0"`
}

type BlockRequest struct {
	Name      string                `json:"name"`
	Exercises []ExerciseUnitRequest `json:"exercises" binding:"required"`
}

type DayRequest struct {
	Name   string         `json:"name"`
	Blocks []BlockRequest `json:"blocks" binding:"required"`
}

// CreateRoutineRequest defines the expected JSON for creating a routine.
type CreateRoutineRequest struct {
	Name string `json:"name" binding:"required"`
	Meta struct {
		GenderTag     string `json:"genderTag"`
		Goal          string `json:"goal"`
		Age           int    `json:"age"`
		Experience    string `json:"experience" binding:"required"`
		Periodization string `json:"periodization"`
	} `json:"meta"`
	Days []DayRequest `json:"days" binding:"required"`
}

// ReplaceExerciseRequest addresses one unit by position and supplies its
// replacement.
type ReplaceExerciseRequest struct {
	Day      int                 `json:"day" binding:"min=0"`
	Block    int                 `json:"block" binding:"min=0"`
	Exercise int                 `json:"exercise" binding:"min=0"`
	Unit     ExerciseUnitRequest `json:"unit" binding:"required"`
}

// RoutineResponse is the DTO for returning a routine with its full tree.
type RoutineResponse struct {
	ID          string             `json:"id"`
	StudentID   string             `json:"studentId"`
	CoachID     string             `json:"coachId"`
	Name        string             `json:"name"`
	Meta        domain.RoutineMeta `json:"meta"`
	CurrentWeek int                `json:"currentWeek"`
	Days        []domain.Day       `json:"days"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// MapRoutineToResponse converts a domain.Routine to RoutineResponse DTO.
func MapRoutineToResponse(r *domain.Routine) RoutineResponse {
	if r == nil {
		return RoutineResponse{}
	}
	return RoutineResponse{
		ID:          r.ID.Hex(),
		StudentID:   r.StudentID.Hex(),
		CoachID:     r.CoachID.Hex(),
		Name:        r.Name,
		Meta:        r.Meta,
		CurrentWeek: r.CurrentWeek,
		Days:        r.Days,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func mapUnitRequest(req ExerciseUnitRequest) domain.ExerciseUnit {
	return domain.ExerciseUnit{
		Name:        req.Name,
		VideoRef:    req.VideoRef,
		Series:      req.Series,
		Reps:        req.Reps,
		Weight:      req.Weight,
		RestSeconds: req.RestSeconds,
	}
}

func mapDayRequests(reqs []DayRequest) []domain.Day {
	days := make([]domain.Day, len(reqs))
	for di, dayReq := range reqs {
		blocks := make([]domain.Block, len(dayReq.Blocks))
		for bi, blockReq := range dayReq.Blocks {
			exercises := make([]domain.ExerciseUnit, len(blockReq.Exercises))
			for ei, unitReq := range blockReq.Exercises {
				exercises[ei] = mapUnitRequest(unitReq)
			}
			blocks[bi] = domain.Block{Name: blockReq.Name, Exercises: exercises}
		}
		days[di] = domain.Day{Name: dayReq.Name, Blocks: blocks}
	}
	return days
}

// --- Handler Methods ---

// Create builds a routine for one of the coach's students.
func (h *RoutineHandler) Create(c *gin.Context) {
	var req CreateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "studentId", Message: "invalid student id"}})
		return
	}

	meta := domain.RoutineMeta{
		GenderTag:     req.Meta.GenderTag,
		Goal:          req.Meta.Goal,
		Age:           req.Meta.Age,
		Experience:    domain.ExperienceLevel(req.Meta.Experience),
		Periodization: req.Meta.Periodization,
	}

	routine, err := h.routineService.Create(c.Request.Context(), coachID, studentID, req.Name, meta, mapDayRequests(req.Days))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapRoutineToResponse(routine))
}

// ReplaceExercise swaps one unit at a tree position.
func (h *RoutineHandler) ReplaceExercise(c *gin.Context) {
	var req ReplaceExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Message: err.Error()}})
		return
	}

	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	routineID, err := primitive.ObjectIDFromHex(c.Param("routineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "routineId", Message: "invalid routine id"}})
		return
	}

	loc := domain.UnitLocation{Day: req.Day, Block: req.Block, Exercise: req.Exercise}
	routine, err := h.routineService.ReplaceExercise(c.Request.Context(), coachID, routineID, loc, mapUnitRequest(req.Unit))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// AdvanceWeek moves the current-week counter forward.
func (h *RoutineHandler) AdvanceWeek(c *gin.Context) {
	coachID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify coach from token")
		return
	}
	routineID, err := primitive.ObjectIDFromHex(c.Param("routineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "routineId", Message: "invalid routine id"}})
		return
	}

	routine, err := h.routineService.AdvanceWeek(c.Request.Context(), coachID, routineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// GetCurrent returns a student's active routine.
func (h *RoutineHandler) GetCurrent(c *gin.Context) {
	callerID, err := getAccountIDFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify caller from token")
		return
	}
	role, err := getAccountRoleFromContext(c)
	if err != nil {
		abortUnauthorized(c, "unable to identify caller role from token")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "validation", Field: "studentId", Message: "invalid student id"}})
		return
	}

	routine, err := h.routineService.GetCurrent(c.Request.Context(), callerID, role, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

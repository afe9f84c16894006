package api

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts the full api/v1 surface on the given engine.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	invitationService service.InvitationService,
	directoryService service.DirectoryService,
	routineService service.RoutineService,
	progressService service.ProgressService,
	templateService service.TemplateService,
) {
	authHandler := NewAuthHandler(authService)
	invitationHandler := NewInvitationHandler(invitationService)
	directoryHandler := NewDirectoryHandler(directoryService)
	routineHandler := NewRoutineHandler(routineService)
	progressHandler := NewProgressHandler(progressService)
	templateHandler := NewTemplateHandler(templateService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")

	authGroup := apiV1.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// Redemption is the one mutating endpoint without a token: the code is
	// the credential.
	apiV1.POST("/invitations/:code/redeem", invitationHandler.Redeem)

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			accountID, err := getAccountIDFromContext(c)
			if err != nil {
				abortUnauthorized(c, "unable to identify account from token")
				return
			}
			role, _ := getAccountRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"accountId": accountID.Hex(), "role": role})
		})

		// --- Invitation Routes (admin) ---
		invitationGroup := protected.Group("/invitations")
		invitationGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			invitationGroup.POST("", invitationHandler.Issue)
			invitationGroup.GET("", invitationHandler.List)
			invitationGroup.DELETE("/:id", invitationHandler.Revoke)
		}

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			coachGroup.POST("/students", directoryHandler.AddStudent)
			coachGroup.GET("/students", directoryHandler.ListStudents)

			coachGroup.POST("/students/:studentId/routines", routineHandler.Create)
			coachGroup.PUT("/routines/:routineId/exercises", routineHandler.ReplaceExercise)
			coachGroup.POST("/routines/:routineId/advance", routineHandler.AdvanceWeek)

			coachGroup.POST("/templates", templateHandler.Create)
			coachGroup.GET("/templates", templateHandler.List)
			coachGroup.PUT("/templates/:id", templateHandler.Update)
			coachGroup.DELETE("/templates/:id", templateHandler.Delete)
			coachGroup.POST("/templates/:id/video", templateHandler.AttachVideo)
			coachGroup.GET("/templates/:id/video", templateHandler.VideoDownloadURL)
		}

		// --- Routine & Progress Routes (per-student access rules live in
		// the services and the handler scopes) ---
		protected.GET("/routines/:studentId/current", routineHandler.GetCurrent)

		progressGroup := protected.Group("/progress")
		{
			progressGroup.POST("/:studentId/weeks/:n", progressHandler.RecordWeek)
			progressGroup.PUT("/:studentId/weeks/:n", progressHandler.AmendWeek)
			progressGroup.PATCH("/:studentId/weeks/:n/days/:d/observation", progressHandler.UpdateObservation)
			progressGroup.GET("/:studentId", progressHandler.GetHistory)
			progressGroup.GET("/:studentId/volume", progressHandler.GetVolume)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.PUT("/students/:studentId/coach", directoryHandler.ReassignStudent)
		}
	}
}

package main

import (
	"alumbra/coaching-app/internal/api"
	"alumbra/coaching-app/internal/config"
	"alumbra/coaching-app/internal/jobs"
	"alumbra/coaching-app/internal/repository/mongo"
	"alumbra/coaching-app/internal/service"
	"alumbra/coaching-app/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.Info("starting coaching app server")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	logrus.Info("configuration loaded")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer func() {
		logrus.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logrus.WithError(err).Error("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logrus.Info("database connection established")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureAccountIndexes(ctx, appDB.Collection("accounts"))
		mongo.EnsureRoutineIndexes(ctx, appDB.Collection("routines"))
		mongo.EnsureProgressIndexes(ctx, appDB.Collection("week_progress"))
		mongo.EnsureInvitationIndexes(ctx, appDB.Collection("invitation_codes"))
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("exercise_templates"))
		mongo.EnsureMediaIndexes(ctx, appDB.Collection("media_assets"))
		logrus.Info("index creation process completed")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize S3 storage")
	}

	// --- Initialize Repositories ---
	accountRepo := mongo.NewMongoAccountRepository(appDB)
	routineRepo := mongo.NewMongoRoutineRepository(appDB)
	progressRepo := mongo.NewMongoProgressRepository(appDB)
	invitationRepo := mongo.NewMongoInvitationRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	mediaRepo := mongo.NewMongoMediaRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	invitationService := service.NewInvitationService(invitationRepo, accountRepo, cfg.Invitation.Validity)
	directoryService := service.NewDirectoryService(accountRepo, routineRepo, progressRepo)
	routineService := service.NewRoutineService(accountRepo, routineRepo, progressRepo)
	progressService := service.NewProgressService(accountRepo, routineRepo, progressRepo)
	templateService := service.NewTemplateService(templateRepo, mediaRepo, fileStorage)

	// --- Seed Admin ---
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := authService.EnsureSeedAdmin(seedCtx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logrus.WithError(err).Fatal("failed to seed admin account")
		}
		seedCancel()
	}

	// --- Invitation Expiry Sweep ---
	sweeper := jobs.NewExpirySweeper(invitationService, cfg.Invitation.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start invitation expiry sweeper")
	}
	defer sweeper.Stop()

	// --- Initialize Gin Engine ---
	router := gin.New()
	router.Use(api.RequestLogger(), gin.Recovery())

	// --- Setup Routes ---
	api.SetupRoutes(
		router,
		cfg.JWT.Secret,
		authService,
		invitationService,
		directoryService,
		routineService,
		progressService,
		templateService,
	)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logrus.WithField("address", cfg.Server.Address).Info("server starting")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("listen and serve error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server exiting")
}

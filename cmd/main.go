package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursesync-backend/internal/data/db"
	"github.com/yungbote/coursesync-backend/internal/data/repos"
	"github.com/yungbote/coursesync-backend/internal/handlers"
	"github.com/yungbote/coursesync-backend/internal/middleware"
	"github.com/yungbote/coursesync-backend/internal/platform/envutil"
	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/platform/openai"
	"github.com/yungbote/coursesync-backend/internal/server"
	"github.com/yungbote/coursesync-backend/internal/services"
	"github.com/yungbote/coursesync-backend/internal/sync/browser"
	"github.com/yungbote/coursesync-backend/internal/sync/crawler"
	"github.com/yungbote/coursesync-backend/internal/sync/extractor"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
	"github.com/yungbote/coursesync-backend/internal/sync/resolver"
	"github.com/yungbote/coursesync-backend/internal/temporalx"
	"github.com/yungbote/coursesync-backend/internal/temporalx/temporalworker"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.String("AUTH_JWT_SECRET", "")
	if jwtSecretKey == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	allRepos := repos.NewAll(thePG, log)

	// Blob store
	blobStore, err := gcp.NewBlobStore(log)
	if err != nil {
		log.Fatal("Blob store init failed", "error", err)
	}

	// OpenAI + oracles
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}
	oracles := oracle.NewOpenAISet(log, openaiClient)

	// Sync pipeline core
	headless := envutil.Bool("CRAWLER_HEADLESS", true)
	fetcher := browser.NewChromeFetcher(log, headless)
	crawl := crawler.New(log, fetcher, blobStore, oracles.Link)
	extract := extractor.New(log, blobStore, oracles.Extraction, allRepos.Assignments)
	resolve := resolver.New(log, blobStore, oracles.Resolver, allRepos.Assignments, allRepos.DueDates)

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Fatal("Temporal client init failed", "error", err)
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(ctx)

	if temporalClient != nil {
		runner, err := temporalworker.NewRunner(log, temporalClient, thePG, allRepos, crawl, extract, resolve)
		if err != nil {
			log.Fatal("Temporal worker init failed", "error", err)
		}
		group.Go(func() error {
			return runner.Start(groupCtx)
		})
	} else {
		log.Warn("Temporal disabled; sync triggers will fail until TEMPORAL_ADDRESS is set")
	}

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(thePG, log, allRepos.Users, jwtSecretKey)
	userService := services.NewUserService(thePG, log, allRepos.Users, allRepos.AuthBundles)
	courseService := services.NewCourseService(thePG, log, allRepos.Courses, allRepos.Sources)
	assignmentService := services.NewAssignmentService(thePG, log, allRepos.Enrollments, allRepos.Assignments, allRepos.DueDates, allRepos.UserAssignments)
	syncService := services.NewSyncService(thePG, log, temporalClient, allRepos.JobSyncGroups, allRepos.JobSyncs)

	// Handlers
	log.Info("Setting up handlers from main...")
	userHandler := handlers.NewUserHandler(userService)
	courseHandler := handlers.NewCourseHandler(courseService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	syncHandler := handlers.NewSyncHandler(syncService)

	// Middleware + router
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		UserHandler:       userHandler,
		CourseHandler:     courseHandler,
		AssignmentHandler: assignmentHandler,
		SyncHandler:       syncHandler,
	})

	port := envutil.String("PORT", "8080")
	group.Go(func() error {
		log.Info("Server listening", "port", port)
		return router.Run(":" + port)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("Shutdown with error", "error", err)
		os.Exit(1)
	}
}

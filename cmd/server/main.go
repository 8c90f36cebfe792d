package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/agency-planner/configs"
	"github.com/maheshrc27/agency-planner/internal/api/handlers"
	"github.com/maheshrc27/agency-planner/internal/api/middleware"
	"github.com/maheshrc27/agency-planner/internal/cache"
	job "github.com/maheshrc27/agency-planner/internal/jobs"
	"github.com/maheshrc27/agency-planner/internal/planner"
	"github.com/maheshrc27/agency-planner/internal/queue"
	"github.com/maheshrc27/agency-planner/internal/repository"
	"github.com/maheshrc27/agency-planner/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: Failed to load environment variables:", err)
	}
	setupLogger()

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		fatal("Database is unreachable", err)
	}
	if err := repository.Migrate(db); err != nil {
		fatal("Failed to migrate database", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error(err.Error(), "path", c.Path())
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	historyRepo := repository.NewPublishHistoryRepository(db)
	sessionRepo := repository.NewApprovalSessionRepository(db)

	fetchCache := cache.New(nil)

	r2Service, err := service.NewR2Service(context.Background(), *cfg)
	if err != nil {
		fatal("Failed to configure object storage", err)
	}
	platformService := service.NewPlatformService(*cfg)
	mediaService := service.NewMediaService(r2Service, platformService)
	accountDirectory := service.NewAccountDirectory(socialAccountRepo, fetchCache, cfg.Planner.AccountsCacheTTL)
	notifier := service.NewSlackNotifier(cfg.Slack.BotToken, cfg.Slack.Channel)
	approvalService := service.NewApprovalService(sessionRepo, postRepo, projectRepo, notifier, fetchCache, service.ApprovalOptions{
		FrontendURL:     cfg.FrontendURL,
		SessionTTL:      cfg.Planner.ApprovalTTL,
		DefaultTimezone: cfg.Planner.DefaultTimezone,
	})

	registry := planner.NewRegistry(planner.Deps{
		Posts:    postRepo,
		Projects: projectRepo,
		History:  historyRepo,
		Accounts: accountDirectory,
		Sessions: approvalService,
		Media:    mediaService,
		Platform: platformService,
		Cache:    fetchCache,
	}, planner.Options{
		DefaultTimezone:   cfg.Planner.DefaultTimezone,
		PostsTTL:          cfg.Planner.PostsCacheTTL,
		ReadTimeout:       cfg.Planner.ReadTimeout,
		PageSize:          cfg.Planner.PageSize,
		BulkScheduleDelay: cfg.Planner.BulkScheduleDelay,
		AuthoringURL:      cfg.Planner.AuthoringURL,
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	approval := handlers.NewApprovalHandler(registry, approvalService)
	app.Get("/approval", approval.Portal)
	app.Post("/approval", approval.Submit)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	board := handlers.NewPlannerHandler(registry, accountDirectory)
	publish := handlers.NewPublishHandler(registry, client, inspector)
	api.Get("/tasks/:id", publish.TaskStatus)

	project := api.Group("/projects/:projectID")
	project.Get("/board", board.Board)
	project.Get("/accounts", board.ListAccounts)
	project.Post("/queue", board.AddToQueue)
	project.Post("/schedule", board.ScheduleFromQueue)
	project.Post("/move", board.MovePost)
	project.Post("/unschedule", board.Unschedule)
	project.Post("/caption", board.EditCaption)
	project.Post("/archive", board.Archive)

	project.Post("/selection/toggle", approval.ToggleSelection)
	project.Post("/selection/all", approval.SelectAll)
	project.Post("/selection/clear", approval.ClearSelection)
	project.Get("/selection/summary", approval.Summary)
	project.Get("/posts/:postID/edit-url", approval.EditURL)
	project.Post("/sessions", approval.CreateSession)

	project.Post("/publish", publish.Publish)
	project.Post("/bulk/delete", publish.BulkDelete)
	project.Post("/bulk/schedule", publish.BulkSchedule)

	// cron jobs
	sessionExpiryJob := job.NewSessionExpiryJob(sessionRepo, nil)
	lateStatusJob := job.NewLateStatusJob(postRepo, platformService, fetchCache)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", sessionExpiryJob.DisableExpired)
	c.AddFunc("@every 00h10m00s", lateStatusJob.SyncStatuses)
	c.Start()
	defer c.Stop()

	// queue
	queueW := queue.NewQueue(registry)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeBulkSchedule, queueW.HandleBulkScheduleTask)

		slog.Info("starting the asynq server")
		if err := server.Run(mux); err != nil {
			fatal("Could not start Asynq server", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.Address); err != nil {
			fatal("Failed to start server", err)
		}
	}()
	slog.Info("server is running", "address", cfg.Address)

	gracefulShutdown(app, server)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func closeDB(db *sql.DB) {
	slog.Info("closing database connection")
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	server.Shutdown()
	slog.Info("server shutdown complete")
}

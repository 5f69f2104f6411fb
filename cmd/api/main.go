package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sara-edu/sara-grading-api/internal/config"
	"github.com/sara-edu/sara-grading-api/internal/database"
	"github.com/sara-edu/sara-grading-api/internal/grading"
	"github.com/sara-edu/sara-grading-api/internal/handler"
	"github.com/sara-edu/sara-grading-api/internal/matching"
	"github.com/sara-edu/sara-grading-api/internal/middleware"
	"github.com/sara-edu/sara-grading-api/internal/models"
	"github.com/sara-edu/sara-grading-api/internal/repository"
	"github.com/sara-edu/sara-grading-api/internal/router"
	"github.com/sara-edu/sara-grading-api/internal/service"
	"github.com/sara-edu/sara-grading-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Activity{},
		&models.RubricCriterion{},
		&models.Submission{},
		&models.GradeHistory{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	evaluator, err := buildEvaluator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	matchingService := service.NewMatchingService(
		studentRepo,
		activityRepo,
		submissionRepo,
		redisClient,
		validate,
		service.MatchingConfig{
			Thresholds: matching.Thresholds{
				Matched:          cfg.MatchedThreshold,
				LowConfidence:    cfg.LowConfidenceThreshold,
				SpecificityBonus: cfg.SpecificityBonus,
			},
			Workers:        cfg.MatchWorkers,
			RosterCacheTTL: cfg.RosterCacheTTL,
			ReviewBatchTTL: cfg.ReviewBatchTTL,
		},
		logger,
	)

	criterionEvaluator := grading.NewCriterionEvaluator(evaluator, cfg.EvaluatorTimeout, logger)
	evaluationService := service.NewEvaluationService(
		submissionRepo,
		criterionEvaluator,
		natsConn,
		validate,
		service.EvaluationConfig{Concurrency: cfg.EvaluatorConcurrency},
		logger,
	)

	matchingHandler := handler.NewMatchingHandler(matchingService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MatchingHandler:   matchingHandler,
		EvaluationHandler: evaluationHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildEvaluator(cfg config.Config, logger zerolog.Logger) (ai.Evaluator, error) {
	switch cfg.AIProvider {
	case "openai":
		return ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	default:
		return ai.NewAnthropicEvaluator(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			Logger: logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

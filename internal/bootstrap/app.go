package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/analyses"
	"internship-portal/internal/extract"
	"internship-portal/internal/llm"
	"internship-portal/internal/llm/gemini"
	"internship-portal/internal/llm/openai"
	"internship-portal/internal/queue"
	"internship-portal/internal/resumes"
	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/server"
	"internship-portal/internal/shared/server/middleware"
	"internship-portal/internal/shared/storage/db"
	"internship-portal/internal/shared/storage/kv"
	"internship-portal/internal/shared/storage/object"
	localstore "internship-portal/internal/shared/storage/object/local"
	s3store "internship-portal/internal/shared/storage/object/s3"
	"internship-portal/internal/shared/telemetry"
)

// App holds the process-wide dependencies shared by the API and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	// Exactly one of these is set, matching Config.QueueBackend.
	MemoryQueue *queue.MemoryQueue
	AMQP        *queue.AMQPClient
	SQSQueueURL string

	Limiter middleware.Limiter

	ResumesRepo     resumes.Repo
	AnalysesRepo    analyses.Repo
	ResumesService  *resumes.Service
	AnalysesService *analyses.Service
	Sweeper         *analyses.Sweeper
	ResumesHandler  *resumes.Handler
	AnalysisHandler *analyses.Handler

	closers []func() error
}

// Build connects backing services and wires the analysis pipeline from cfg.
func Build(ctx context.Context, cfg config.Config, opts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.Configure(cfg.LogLevel)

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildQueue(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildLimiter(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildServices(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		ResumeHandler:   app.ResumesHandler,
		AnalysisHandler: app.AnalysisHandler,
		Limiter:         app.Limiter,
	})
	return app, nil
}

// Close releases connections opened by Build, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildQueue(ctx context.Context) error {
	cfg := a.Config
	switch cfg.QueueBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return err
		}
		a.Queue = client
		a.SQSQueueURL = cfg.SQSQueueURL
	case "amqp":
		client, err := queue.NewAMQPClient(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		a.Queue = client
		a.AMQP = client
		a.closers = append(a.closers, client.Close)
	default:
		mq := queue.NewMemoryQueue(0)
		a.Queue = mq
		a.MemoryQueue = mq
		a.closers = append(a.closers, func() error { mq.Close(); return nil })
	}
	return nil
}

func (a *App) buildLimiter(ctx context.Context) error {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		a.Limiter = middleware.NewLocalLimiter(nil)
		return nil
	}
	store, err := kv.NewRedisStore(ctx, a.Config.RedisURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, store.Close)
	a.Limiter = &middleware.SharedLimiter{Store: store, Prefix: "ratelimit:"}
	return nil
}

// BuildGenerator selects the model backend named by ai.Provider.
func BuildGenerator(ctx context.Context, ai config.AIConfig) (llm.Generator, error) {
	switch ai.Provider {
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{APIKey: ai.APIKey, Model: ai.Model, BaseURL: ai.BaseURL})
	case "openai":
		return openai.NewClient(openai.Config{APIKey: ai.APIKey, Model: ai.Model, BaseURL: ai.BaseURL})
	default:
		log.Printf("bootstrap: no AI provider configured; using static analysis")
		return llm.StaticGenerator{}, nil
	}
}

func (a *App) buildServices(ctx context.Context) error {
	if a.DB != nil {
		a.ResumesRepo = &resumes.PGRepo{DB: a.DB}
		a.AnalysesRepo = &analyses.PGRepo{DB: a.DB}
	} else {
		a.ResumesRepo = resumes.NewMemoryRepo()
		a.AnalysesRepo = analyses.NewMemoryRepo()
	}

	gen, err := BuildGenerator(ctx, a.Config.AI)
	if err != nil {
		return err
	}
	ai := a.Config.AI
	analyzer := llm.NewAnalyzer(gen, llm.Options{
		TargetRole: a.Config.AnalysisTargetRole,
		Params: llm.GenerationParams{
			Temperature:     ai.Temperature,
			TopP:            ai.TopP,
			TopK:            ai.TopK,
			MaxOutputTokens: ai.MaxOutputTokens,
		},
		MaxAttempts:    ai.MaxAttempts,
		AttemptTimeout: ai.Timeout,
	})

	a.ResumesService = &resumes.Service{Store: a.Store, Repo: a.ResumesRepo}
	a.AnalysesService = &analyses.Service{
		Repo:       a.AnalysesRepo,
		Resumes:    a.ResumesRepo,
		Files:      a.Store,
		Extractor:  extract.New(),
		Analyzer:   analyzer,
		Queue:      a.Queue,
		TargetRole: a.Config.AnalysisTargetRole,
	}
	a.Sweeper = &analyses.Sweeper{
		Repo:       a.AnalysesRepo,
		Queue:      a.Queue,
		StaleAfter: a.Config.SweeperStaleAfter,
		Interval:   a.Config.SweeperInterval,
	}
	a.ResumesHandler = resumes.NewHandler(a.ResumesService)
	a.AnalysisHandler = analyses.NewHandler(a.AnalysesService)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

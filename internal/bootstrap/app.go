package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/assessments"
	"compliance-backend/internal/exports"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/recommendation"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	s3store "compliance-backend/internal/shared/storage/object/s3"
	"compliance-backend/internal/shared/telemetry"
)

const defaultRegion = "us-east-1"

// App holds shared dependencies and the wired router.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Store              object.ObjectStore
	Queue              queue.Client
	Engine             *recommendation.Engine
	AssessmentsRepo    assessments.Repo
	ExportsRepo        exports.Repo
	AssessmentsService *assessments.Service
	ExportsService     *exports.Service
	AssessmentsHandler *assessments.Handler
	ExportsHandler     *exports.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		cfg.AWSRegion = defaultRegion
	}
	if err := telemetry.Configure(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	ctx := context.Background()

	policy, err := recommendation.ParseMissingSectionPolicy(cfg.MissingSectionPolicy)
	if err != nil {
		return nil, err
	}
	engine, err := recommendation.Default(recommendation.WithMissingSectionPolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("load recommendation catalog: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Engine: engine,
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		DB:                 app.DB,
		AssessmentsHandler: app.AssessmentsHandler,
		ExportsHandler:     app.ExportsHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"object_store":   cfg.ObjectStoreType,
		"database":       sqlDB != nil,
		"queue":          queueClient != nil,
		"engine_version": engine.Version(),
		"missing_policy": string(engine.Policy()),
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() || cfg.Env == "test" {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, db.ErrNoDatabaseURL
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	// Dev-like environments migrate on boot; elsewhere cmd/migrate owns the schema.
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "migrations failed", "error": err})
			_ = sqlDB.Close()
			return nil, nil
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.ExportQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.ExportQueueURL)
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.AssessmentsRepo = &assessments.PGRepo{DB: app.DB}
		app.ExportsRepo = &exports.PGRepo{DB: app.DB}
	} else {
		app.AssessmentsRepo = assessments.NewMemoryRepo()
		app.ExportsRepo = exports.NewMemoryRepo()
	}

	app.AssessmentsService = &assessments.Service{
		Repo:   app.AssessmentsRepo,
		Engine: app.Engine,
	}
	app.ExportsService = &exports.Service{
		Repo:        app.ExportsRepo,
		Assessments: app.AssessmentsRepo,
		Store:       app.Store,
		Queue:       app.Queue,
	}
	app.AssessmentsHandler = assessments.NewHandler(app.AssessmentsService)
	app.ExportsHandler = exports.NewHandler(app.ExportsService)

	if app.AssessmentsHandler == nil || app.ExportsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// Close drains in-process export jobs and releases the database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.ExportsService != nil {
		a.ExportsService.Wait()
	}
	telemetry.Sync()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// Package app wires repositories, services, and the HTTP router from the
// external dependencies that main() provides.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"datashelf/internal/auth"
	"datashelf/internal/blob"
	"datashelf/internal/config"
	"datashelf/internal/db/repository"
	"datashelf/internal/domain"
	"datashelf/internal/service"
)

// Deps holds the external dependencies the app package cannot create
// itself: database handles, config, and the root logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler needs.
type Services struct {
	Account *service.AccountService
	Dataset *service.DatasetService
	Grant   *service.GrantService
}

// App is the fully-wired application.
type App struct {
	Services Services
	Files    domain.FileStore
	Janitor  *service.Janitor

	// AccountRepo is exposed for the auth middleware, which resolves JWT
	// subjects to principals on the read pool.
	AccountRepo domain.AccountRepository

	Logger *slog.Logger
}

// New wires all repositories and services from the provided deps and runs
// the idempotent admin bootstrap.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	// Repositories that INSERT/UPDATE/DELETE use the write pool; the
	// auth-middleware account lookup runs on the read pool.
	accountRepo := repository.NewAccountRepo(deps.WriteDB)
	datasetRepo := repository.NewDatasetRepo(deps.WriteDB)
	grantRepo := repository.NewGrantRepo(deps.WriteDB)
	selectionRepo := repository.NewSelectionRepo(deps.WriteDB)
	taskRepo := repository.NewTaskRepo(deps.WriteDB)
	readAccountRepo := repository.NewAccountRepo(deps.ReadDB)

	var files domain.FileStore
	if cfg.S3.Configured() {
		files = blob.NewS3Store(blob.S3Config{
			KeyID:    cfg.S3.KeyID,
			Secret:   cfg.S3.Secret,
			Endpoint: cfg.S3.Endpoint,
			Region:   cfg.S3.Region,
			Bucket:   cfg.S3.Bucket,
		})
		deps.Logger.Info("blob store: s3", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	} else {
		files = blob.NewMemoryStore()
		deps.Logger.Info("blob store: in-memory")
	}

	access := service.NewAccessService(accountRepo, datasetRepo, grantRepo)
	sync := service.NewGrantSyncService(grantRepo, accountRepo, datasetRepo, access,
		deps.Logger.With("component", "grant-sync"))
	cascade := service.NewCascadeService(accountRepo, datasetRepo, grantRepo,
		selectionRepo, taskRepo, files, access,
		deps.Logger.With("component", "cascade"))

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	accountSvc := service.NewAccountService(accountRepo, access, sync, cascade, hasher,
		deps.Logger.With("component", "accounts"))
	datasetSvc := service.NewDatasetService(datasetRepo, access, sync, cascade,
		deps.Logger.With("component", "datasets"))
	grantSvc := service.NewGrantService(grantRepo, accountRepo, datasetRepo, access,
		deps.Logger.With("component", "grants"))

	janitor := service.NewJanitor(grantRepo, deps.Logger.With("component", "janitor"))

	if err := seedAdmin(ctx, accountRepo, hasher, cfg, deps.Logger); err != nil {
		return nil, err
	}

	return &App{
		Services: Services{
			Account: accountSvc,
			Dataset: datasetSvc,
			Grant:   grantSvc,
		},
		Files:       files,
		Janitor:     janitor,
		AccountRepo: readAccountRepo,
		Logger:      deps.Logger,
	}, nil
}

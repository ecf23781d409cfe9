package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-scan-gate/internal/application"
	appai "github.com/bryanwahyu/automaton-scan-gate/internal/application/ai"
	appscans "github.com/bryanwahyu/automaton-scan-gate/internal/application/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/config"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-scan-gate/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/scanapi"
	minioStore "github.com/bryanwahyu/automaton-scan-gate/internal/infra/storage"
)

type app struct {
	scans *appscans.Service
	ai    *appai.Service
	db    *sql.DB // nil for the memory driver
	log   *zap.SugaredLogger
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func wire(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app, error) {
	a := &app{log: log}

	baseURL := cfg.ScanAPI.BaseURL
	if baseURL == "" {
		baseURL = scanapi.BaseURLFor(cfg.Environment)
	}
	api := scanapi.NewClient(baseURL, cfg.APIKey, cfg.ScanAPI.Timeout)
	log.Infow("scan api", "environment", cfg.Environment, "base_url", api.BaseURL())

	runs, err := a.openRuns(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := &appscans.Service{
		API:    api,
		Clock:  application.SystemClock{},
		Log:    log.Named("scans"),
		Policy: appscans.Policy{Interval: cfg.Poll.Interval, MaxAttempts: cfg.Poll.MaxAttempts},
		Runs:   runs,
	}

	if cfg.Archive.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Reports = store
	}
	a.scans = svc

	if cfg.AI.APIKey != "" {
		a.ai = appai.NewService(openai.NewClient(cfg.AI.APIKey, cfg.AI.Model))
	}
	return a, nil
}

func (a *app) openRuns(ctx context.Context, cfg *config.Config) (domain.RunRepository, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		a.db = db
		return mysqlp.NewRunRepository(db), nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.db = db
		return postgres.NewRunRepository(db), nil
	default:
		return memory.NewRunRepository(), nil
	}
}

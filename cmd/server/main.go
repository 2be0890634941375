package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bioport/internal/audit"
	"bioport/internal/document"
	"bioport/internal/editortoken"
	"bioport/internal/identification"
	"bioport/internal/ingest"
	"bioport/internal/platform/config"
	"bioport/internal/platform/httpserver"
	"bioport/internal/platform/logger"
	"bioport/internal/platform/metrics"
	"bioport/internal/platform/postgres"
	"bioport/internal/platform/redis"
	"bioport/internal/registry"
	"bioport/internal/similarity"
	"bioport/internal/source"
	"bioport/internal/subject"
	httptransport "bioport/internal/transport/http"
	"bioport/internal/witness"
	"bioport/pkg/platform/tx"
)

// main wires the storage backends to the services and keeps the server
// lifecycle small. Without DATABASE_URL everything runs in memory,
// which is enough for local development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	m := metrics.New()

	var (
		db     *sql.DB
		runner tx.Runner

		registryStore registry.Store
		documentStore document.Store
		subjectStore  subject.Store
		sourceStore   source.Store
		witnessStore  witness.Store
		cacheStore    similarity.Store
		auditStore    audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema bootstrap failed", "error", err)
			os.Exit(1)
		}
		runner = tx.NewSQLRunner(db)
		registryStore = registry.NewPostgres(db)
		documentStore = document.NewPostgres(db)
		subjectStore = subject.NewPostgres(db)
		sourceStore = source.NewPostgres(db)
		witnessStore = witness.NewPostgres(db)
		cacheStore = similarity.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		log.Info("storage backend", "kind", "postgres")
	} else {
		runner = tx.NewMemoryRunner()
		registryStore = registry.NewInMemoryStore()
		documentStore = document.NewInMemoryStore()
		subjectStore = subject.NewInMemoryStore()
		sourceStore = source.NewInMemoryStore()
		witnessStore = witness.NewInMemoryStore()
		cacheStore = similarity.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Warn("storage backend", "kind", "memory")
	}

	var guard similarity.Guard = similarity.NoopGuard{}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = similarity.NewRedisGuard(redisClient.Client)
		log.Info("similarity refresh guard", "kind", "redis")
	}

	reg := registry.NewService(registryStore, log, registry.WithMetrics(m))
	documents := document.NewService(documentStore, runner, log, document.WithMetrics(m))
	subjects := subject.NewService(subjectStore, documentStore, sourceStore, runner, log)
	similar := similarity.NewService(cacheStore, subjectStore, witnessStore, reg,
		runner, log,
		similarity.Config{
			MinScore:       cfg.Similarity.MinScore,
			TopK:           cfg.Similarity.TopK,
			RefreshWorkers: cfg.Similarity.RefreshWorkers,
		},
		similarity.WithMetrics(m), similarity.WithGuard(guard))
	recorder := audit.NewRecorder(auditStore, log)
	identify := identification.NewService(reg, documents, subjects, similar,
		sourceStore, witnessStore, recorder, runner, log, identification.WithMetrics(m))
	ingestSvc := ingest.NewService(reg, documents, subjects, similar, sourceStore, runner, log)
	sourceSvc := source.NewService(sourceStore, log)
	tokens := editortoken.NewService(cfg.EditorSigningKey, "bioport")

	if err := sourceSvc.EnsureEditorial(ctx); err != nil {
		log.Error("editorial source bootstrap failed", "error", err)
		os.Exit(1)
	}

	h := httptransport.NewHandler(log, reg, documents, subjects, similar,
		identify, ingestSvc, sourceSvc, recorder, tokens, cfg.AdminToken)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(h))

	go func() {
		log.Info("bioport listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("bioport stopped")
}

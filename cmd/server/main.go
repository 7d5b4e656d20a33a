package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"siterisk/internal/assessment"
	"siterisk/internal/audit"
	"siterisk/internal/identity"
	"siterisk/internal/notification"
	"siterisk/internal/platform/config"
	"siterisk/internal/platform/httpserver"
	"siterisk/internal/platform/logger"
	"siterisk/internal/platform/metrics"
	"siterisk/internal/platform/postgres"
	"siterisk/internal/platform/redis"
	"siterisk/internal/study"
	"siterisk/internal/timeline"
	httptransport "siterisk/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	jwtSvc := identity.NewJWTService(cfg.JWTSigningKey)

	studyStore := study.NewPostgresStore(db)
	studySvc := study.NewService(studyStore, log)

	auditSvc := audit.NewService(audit.NewPostgresStore(db), m, log)
	tracker := timeline.NewTracker(timeline.NewPostgresStore(db), log)
	notifSvc := notification.NewService(notification.NewPostgresStore(db), m, log)

	cache := assessment.NewCatalogCache(redisClient, cfg.CatalogTTL, log)
	assessmentSvc := assessment.NewService(
		assessment.NewPostgresStore(db),
		studyStore,
		auditSvc,
		tracker,
		notifSvc,
		cache,
		m,
		db,
		log,
	)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Assessments:   httptransport.NewAssessmentHandler(assessmentSvc, log),
		Studies:       httptransport.NewStudyHandler(studySvc, log),
		Notifications: httptransport.NewNotificationHandler(notifSvc, log),
		Audits:        httptransport.NewAuditHandler(auditSvc, tracker, assessmentSvc, log),
		Validator:     jwtSvc,
		Metrics:       m,
		Logger:        log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting siterisk server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manisense/constellation-push-dispatcher/internal/config"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/persistence"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/push"
	"github.com/manisense/constellation-push-dispatcher/internal/transport/http/handlers"
	"github.com/manisense/constellation-push-dispatcher/internal/transport/http/middleware"
	"github.com/manisense/constellation-push-dispatcher/internal/usecase"
	"github.com/sirupsen/logrus"
)

// Run starts the HTTP trigger surface: GET / health, POST / one dispatch
// batch. Provider credentials are validated before anything listens.
func Run(ctx context.Context, cfg config.Config) error {
	start := time.Now()
	log, err := BuildLogger(cfg)
	if err != nil {
		return err
	}
	if err := cfg.ValidatePush(); err != nil {
		return err
	}

	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:          cfg.Database.WriteDSN,
		ReadDSN:           cfg.Database.ReadDSN,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	log.Infof("bootstrap: db init in %s", time.Since(start))
	defer conn.Close()

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		return err
	}
	log.Infof("bootstrap: db ping in %s", time.Since(start))

	dispatcher, health, err := BuildServices(cfg, conn, log)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery())
	handler := handlers.NewHandler(dispatcher, health)
	routerBuilder := handlers.NewRouter(handler)
	routerBuilder.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("bootstrap: server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	return nil
}

// BuildServices wires the dispatch loop and health reporter onto a store
// connection. The push client is constructed once and reused across runs.
func BuildServices(cfg config.Config, conn *persistence.DB, log *logrus.Logger) (service.DispatchService, service.HealthService, error) {
	pushClient, err := push.NewClient(push.Config{
		URL:     cfg.Push.URL,
		APIKey:  cfg.Push.APIKey,
		AppID:   cfg.Push.AppID,
		Timeout: cfg.Push.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	outboxRepo := persistence.NewOutboxRepository(conn, cfg.Outbox.LockTimeout)
	dispatcher := usecase.NewDispatcher(outboxRepo, pushClient, cfg.Outbox.RetryDelay, cfg.Outbox.MaxAttempts, log)
	health := usecase.NewHealthReporter(outboxRepo, service.HealthThresholds{
		PendingAgeWarnSeconds: int64(cfg.Health.PendingAgeWarn.Seconds()),
		FailedWarnCount:       cfg.Health.FailedWarnCount,
		QueuedWarnCount:       cfg.Health.QueuedWarnCount,
	}, log)

	return dispatcher, health, nil
}

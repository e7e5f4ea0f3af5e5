package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/booking/internal/health"
	"github.com/vladislavdragonenkov/booking/internal/identity"
	"github.com/vladislavdragonenkov/booking/internal/metrics"
	"github.com/vladislavdragonenkov/booking/internal/service/booking"
	"github.com/vladislavdragonenkov/booking/internal/service/notification"
	"github.com/vladislavdragonenkov/booking/internal/service/outbox"
	"github.com/vladislavdragonenkov/booking/internal/service/stats"
	"github.com/vladislavdragonenkov/booking/internal/version"
)

// Service — собранный граф компонентов сервиса бронирования.
type Service struct {
	Coordinator *booking.Coordinator
	Inbox       *notification.Inbox

	deps      *runtimeDependencies
	locks     *lockBackend
	transport *notificationTransport
	worker    *outbox.Worker
	cleaner   *outbox.CleanupWorker
	reporter  *stats.Reporter
	health    *healthcheck.Handler
}

// NewService собирает хранилища, блокировки, доставку уведомлений и координатор.
func NewService(ctx context.Context, cfg Config, logger *log.Entry) (*Service, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := &Service{deps: deps}

	locks, err := initLocker(cfg, logger)
	if err != nil {
		svc.Close(logger)
		return nil, err
	}
	svc.locks = locks

	if cfg.SeedDefaults {
		if err := seedDefaults(ctx, deps.rules, deps.resources, logger); err != nil {
			svc.Close(logger)
			return nil, err
		}
	}

	bookingMetrics := metrics.NewBookingMetrics()
	svc.Inbox = notification.NewInbox(cfg.InboxCapacity)
	svc.transport = initNotificationTransport(cfg, svc.Inbox, logger)

	workerOptions := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryBaseDelay),
	}
	if svc.transport.dlqPublisher != nil {
		workerOptions = append(workerOptions, outbox.WithDLQPublisher(svc.transport.dlqPublisher))
	}
	svc.worker = outbox.NewWorker(deps.outboxRepo, svc.transport.publisher, workerOptions...)

	if pruner, ok := deps.outboxRepo.(domain.OutboxPruner); ok {
		svc.cleaner = outbox.NewCleanupWorker(pruner,
			outbox.WithCleanupLogger(logger.WithField("component", "outbox-cleanup-worker")),
			outbox.WithCleanupInterval(cfg.OutboxCleanupInterval),
			outbox.WithCleanupBatchSize(cfg.OutboxCleanupBatchSize),
			outbox.WithRetention(cfg.OutboxRetention),
		)
	}

	svc.Coordinator = booking.NewCoordinator(booking.Dependencies{
		Rules:        deps.rules,
		Resources:    deps.resources,
		Reservations: deps.reservations,
		Audit:        deps.audit,
		Identity:     identity.NewContextIdentity(),
	},
		booking.WithLogger(logger.WithField("component", "booking")),
		booking.WithMetrics(bookingMetrics),
		booking.WithLocker(locks.locker),
		booking.WithNotifier(notification.NewOutboxNotifier(deps.outboxRepo, logger.WithField("component", "notifier"))),
		booking.WithLockTimeout(cfg.LockTimeout),
		booking.WithOverlapCheck(cfg.OverlapCheck),
	)

	svc.reporter = stats.NewReporter(svc.Coordinator, bookingMetrics, cfg.StatsInterval, logger.WithField("component", "stats-reporter"))

	svc.health = healthcheck.NewHandler(version.Current(), healthcheck.WithTimeout(cfg.HealthTimeout))
	svc.health.Register("storage", deps.storageChecker)
	svc.health.Register("outbox", outboxChecker(deps.outboxRepo, cfg.OutboxMaxPending))
	if locks.checker != nil {
		svc.health.Register("lock", locks.checker)
	}

	return svc, nil
}

// Start запускает фоновые задачи: outbox worker, очистку outbox, consumer уведомлений и сбор статистики.
// Возвращает канал, закрывающийся после остановки обоих outbox воркеров.
func (s *Service) Start(ctx context.Context, logger *log.Entry) <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker.Run(ctx)
	}()
	if s.cleaner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.cleaner.Run(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	s.transport.start(ctx, logger)

	if err := s.reporter.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start stats reporter")
	}
	return done
}

// Close освобождает внешние подключения. Повторный вызов безопасен.
func (s *Service) Close(logger *log.Entry) {
	if s == nil {
		return
	}
	if s.reporter != nil {
		if err := s.reporter.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop stats reporter")
		}
	}
	s.transport.close(logger)
	s.transport = nil
	if s.locks != nil && s.locks.closeFn != nil {
		if err := s.locks.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close lock backend")
		}
		s.locks.closeFn = nil
	}
	if s.deps != nil && s.deps.closeFn != nil {
		if err := s.deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
		s.deps.closeFn = nil
	}
}

// Run поднимает сервис и блокируется до отмены ctx или падения gRPC сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	svc, err := NewService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close(logger)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := svc.Start(workerCtx, logger)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	if err := version.Register(prometheus.DefaultRegisterer, version.Current()); err != nil {
		logger.WithError(err).Warn("failed to register build info")
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcMetrics.InitializeMetrics(grpcServer)

	// Reflection нужен для grpcurl
	reflection.Register(grpcServer)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, svc.health)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownOutboxWorker(cancelWorker, workerDone, logger)
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		shutdownOutboxWorker(cancelWorker, workerDone, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownOutboxWorker(cancelWorker, workerDone, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// shutdownOutboxWorker отменяет worker и ждёт его завершения не дольше 5 секунд.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker did not stop in time")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}

package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/metrics"
	"github.com/vladislavdragonenkov/booking/internal/service/booking"
)

const defaultInterval = 30 * time.Second

// Source отдаёт агрегаты по бронированиям.
type Source interface {
	Stats(ctx context.Context) (booking.Stats, error)
}

// Reporter периодически выгружает агрегаты бронирований в gauge booking_reservations.
type Reporter struct {
	source    Source
	metrics   *metrics.BookingMetrics
	logger    *log.Entry
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewReporter создаёт Reporter. Интервал <= 0 заменяется значением по умолчанию.
func NewReporter(source Source, m *metrics.BookingMetrics, interval time.Duration, logger *log.Entry) *Reporter {
	if logger == nil {
		logger = log.WithField("component", "stats-reporter")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Reporter{source: source, metrics: m, logger: logger, interval: interval}
}

// Collect снимает один снимок статистики.
func (r *Reporter) Collect(ctx context.Context) error {
	stats, err := r.source.Stats(ctx)
	if err != nil {
		return fmt.Errorf("collect reservation stats: %w", err)
	}

	counts := make(map[string]map[string]int, len(stats.ByTypeAndStatus))
	for resourceType, byStatus := range stats.ByTypeAndStatus {
		inner := make(map[string]int, len(byStatus))
		for status, n := range byStatus {
			inner[string(status)] = n
		}
		counts[string(resourceType)] = inner
	}
	if r.metrics != nil {
		r.metrics.SetReservationCounts(counts)
	}

	r.logger.WithFields(log.Fields{
		"total":     stats.Total,
		"by_status": stats.ByStatus,
	}).Debug("reservation stats collected")
	return nil
}

// Start регистрирует периодическую задачу и запускает планировщик.
// Задача работает в singleton-режиме: медленный сбор не накладывается сам на себя.
func (r *Reporter) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if err := r.Collect(ctx); err != nil {
				r.logger.WithError(err).Warn("stats collection failed")
			}
		}),
		gocron.WithName("reservation-stats"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule stats job: %w", err)
	}

	scheduler.Start()
	r.scheduler = scheduler
	r.logger.WithField("interval", r.interval).Info("stats reporter started")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего сбора.
func (r *Reporter) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	r.scheduler = nil
	return nil
}

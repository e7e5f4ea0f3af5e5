package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/app"
	"github.com/vladislavdragonenkov/booking/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// runService запускает приложение и считает отмену контекста штатной остановкой.
func runService(ctx context.Context, cfg app.Config, run func(context.Context, app.Config) error) error {
	log.WithFields(version.Current().Fields()).WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"lock_driver":    cfg.LockDriver,
		"kafka":          cfg.KafkaEnabled(),
	}).Info("запускаем BookingService")

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("BookingService остановлен")
	return nil
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		setupLogger("info")
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runService(ctx, cfg, app.Run); err != nil {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}
}

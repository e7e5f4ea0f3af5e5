// Package version хранит сведения о сборке BookingService.
// Значения подставляются линковщиком:
//
//	-ldflags "-X github.com/vladislavdragonenkov/booking/internal/version.version=v1.4.0"
package version

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const devVersion = "dev"

var (
	version = devVersion
	commit  = "unknown"
	date    = "unknown"
)

// Build — сведения о сборке, которые отдаются в /healthz и в стартовом логе.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Current возвращает сведения о текущем бинаре.
func Current() Build {
	return Build{Version: version, Commit: commit, Date: date}
}

// Dev сообщает, что бинарь собран без -ldflags.
func (b Build) Dev() bool { return b.Version == "" || b.Version == devVersion }

func (b Build) String() string {
	return fmt.Sprintf("booking %s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}

// Fields — поля для записи о запуске сервиса.
func (b Build) Fields() log.Fields {
	return log.Fields{
		"version":    b.Version,
		"commit":     b.Commit,
		"build_date": b.Date,
	}
}

// Register публикует gauge booking_build_info с версией и коммитом в метках.
// Повторная регистрация той же сборки не считается ошибкой.
func Register(reg prometheus.Registerer, b Build) error {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "booking_build_info",
		Help:        "Build information of the booking service.",
		ConstLabels: prometheus.Labels{"version": b.Version, "commit": b.Commit},
	})
	gauge.Set(1)

	if err := reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return fmt.Errorf("register build info: %w", err)
	}
	return nil
}

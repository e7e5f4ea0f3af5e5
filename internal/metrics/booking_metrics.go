package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics содержит метрики операций с бронированиями.
type BookingMetrics struct {
	// Счётчики операций
	reservationsCreated *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec
	reservationsCancel  prometheus.Counter
	statusChanges       *prometheus.CounterVec
	operationErrors     *prometheus.CounterVec

	// Время выполнения операций
	operationDuration *prometheus.HistogramVec

	// Журнал и уведомления
	auditEntries  prometheus.Counter
	notifications *prometheus.CounterVec

	operationsInFlight prometheus.Gauge
	// Снимок количества бронирований по типу ресурса и статусу
	reservations *prometheus.GaugeVec
}

// NewBookingMetrics создаёт метрики в глобальном реестре Prometheus.
func NewBookingMetrics() *BookingMetrics {
	return NewBookingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewBookingMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewBookingMetricsWithRegisterer(registerer prometheus.Registerer) *BookingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &BookingMetrics{
		reservationsCreated: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "booking_reservations_created_total",
			Help: "Total number of reservations created grouped by initial status",
		}, []string{"status"}),
		validationFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "booking_validation_failures_total",
			Help: "Total number of reservation requests rejected by policy rules",
		}, []string{"reason"}),
		reservationsCancel: registerCounter(registerer, prometheus.CounterOpts{
			Name: "booking_reservations_cancelled_total",
			Help: "Total number of reservations cancelled",
		}),
		statusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "booking_status_changes_total",
			Help: "Total number of manual review decisions grouped by status",
		}, []string{"status"}),
		operationErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "booking_operation_errors_total",
			Help: "Total number of failed coordinator operations grouped by operation",
		}, []string{"op"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "booking_operation_duration_seconds",
			Help:    "Duration of coordinator operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		auditEntries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "booking_audit_entries_total",
			Help: "Total number of audit entries recorded",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Total number of user notifications grouped by result",
		}, []string{"result"}),
		operationsInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "booking_operations_in_flight",
			Help: "Number of coordinator operations currently running",
		}),
		reservations: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "booking_reservations",
			Help: "Current number of reservations grouped by resource type and status",
		}, []string{"resource_type", "status"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordReservationCreated учитывает созданное бронирование с начальным статусом.
func (m *BookingMetrics) RecordReservationCreated(status string) {
	m.reservationsCreated.WithLabelValues(status).Inc()
}

// RecordValidationFailure учитывает отказ правила.
func (m *BookingMetrics) RecordValidationFailure(reason string) {
	m.validationFailures.WithLabelValues(reason).Inc()
}

// RecordReservationCancelled увеличивает счётчик отмен.
func (m *BookingMetrics) RecordReservationCancelled() {
	m.reservationsCancel.Inc()
}

// RecordStatusChange учитывает решение администратора.
func (m *BookingMetrics) RecordStatusChange(status string) {
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordOperationError учитывает неуспешную операцию.
func (m *BookingMetrics) RecordOperationError(op string) {
	m.operationErrors.WithLabelValues(op).Inc()
}

// RecordOperationStarted увеличивает число выполняемых операций.
func (m *BookingMetrics) RecordOperationStarted() {
	m.operationsInFlight.Inc()
}

// RecordOperationFinished уменьшает число выполняемых операций и пишет длительность.
func (m *BookingMetrics) RecordOperationFinished(op string, duration time.Duration) {
	m.operationsInFlight.Dec()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordAuditEntry увеличивает счётчик записей журнала.
func (m *BookingMetrics) RecordAuditEntry() {
	m.auditEntries.Inc()
}

// RecordNotification учитывает результат постановки уведомления (queued|failed).
func (m *BookingMetrics) RecordNotification(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

// SetReservationCounts заменяет снимок количества бронирований.
// counts индексируется типом ресурса, затем статусом.
func (m *BookingMetrics) SetReservationCounts(counts map[string]map[string]int) {
	m.reservations.Reset()
	for resourceType, byStatus := range counts {
		for status, n := range byStatus {
			m.reservations.WithLabelValues(resourceType, status).Set(float64(n))
		}
	}
}

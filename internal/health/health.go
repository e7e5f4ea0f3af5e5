// Package health собирает состояние хранилища, блокировок и outbox
// для HTTP-эндпоинтов /healthz, /readyz и /livez.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/version"
)

// Status — состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report — тело ответа /healthz.
type Report struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Components    map[string]Check `json:"components,omitempty"`
	Build         version.Build    `json:"build"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Failing возвращает имена компонентов в состоянии status, по алфавиту.
func (r Report) Failing(status Status) []string {
	var names []string
	for name, check := range r.Components {
		if check.Status == status {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Checker проверяет один компонент. ctx ограничен таймаутом обработчика.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler опрашивает зарегистрированные компоненты параллельно.
type Handler struct {
	mu         sync.RWMutex
	components map[string]Checker

	build   version.Build
	timeout time.Duration
	now     func() time.Time
	started time.Time
}

// Option настраивает Handler.
type Option func(*Handler)

// WithTimeout ограничивает время одного опроса всех компонентов.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithClock подменяет часы; используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(build version.Build, options ...Option) *Handler {
	h := &Handler{
		components: make(map[string]Checker),
		build:      build,
		timeout:    defaultCheckTimeout,
		now:        time.Now,
	}
	for _, option := range options {
		option(h)
	}
	h.started = h.now()
	return h
}

// Register добавляет компонент; повторная регистрация имени заменяет проверку.
func (h *Handler) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = checker
}

// Evaluate опрашивает все компоненты и сводит их в общий статус:
// хотя бы один unhealthy даёт unhealthy, иначе хотя бы один degraded даёт degraded.
func (h *Handler) Evaluate(ctx context.Context) Report {
	h.mu.RLock()
	components := make(map[string]Checker, len(h.components))
	for name, checker := range h.components {
		components[name] = checker
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		checks = make(map[string]Check, len(components))
	)
	for name, checker := range components {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			check := checker.Check(ctx)
			mu.Lock()
			checks[name] = check
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, check := range checks {
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	now := h.now()
	return Report{
		Status:        overall,
		Timestamp:     now.UTC(),
		Components:    checks,
		Build:         h.build,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
	}
}

// ServeHTTP отдаёт полный отчёт; 503 только для unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Evaluate(r.Context())

	statusCode := http.StatusOK
	if report.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(report)
}

// ReadinessHandler отвечает 503 со списком упавших компонентов.
// Деградация не снимает сервис с балансировки, но попадает в тело ответа.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	report := h.Evaluate(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	switch report.Status {
	case StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "not ready: %s", strings.Join(report.Failing(StatusUnhealthy), ", "))
	case StatusDegraded:
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "degraded: %s", strings.Join(report.Failing(StatusDegraded), ", "))
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

// LivenessHandler всегда отвечает 200: процесс жив, пока обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// PingChecker — компонент, доступность которого проверяется одним вызовом.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker создаёт проверку; ошибка ping означает unhealthy.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

// Check выполняет проверку
func (c *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.ping(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// BacklogChecker переводит компонент в degraded, когда очередь превышает порог.
// Ошибка подсчёта означает unhealthy; limit <= 0 отключает порог.
type BacklogChecker struct {
	name  string
	limit int
	count func(ctx context.Context) (int, error)
}

func NewBacklogChecker(name string, limit int, count func(ctx context.Context) (int, error)) *BacklogChecker {
	return &BacklogChecker{name: name, limit: limit, count: count}
}

// Check выполняет проверку
func (c *BacklogChecker) Check(ctx context.Context) Check {
	start := time.Now()
	n, err := c.count(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	case c.limit > 0 && n > c.limit:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("backlog %d exceeds %d", n, c.limit)
	}
	return check
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/metrics"
	"github.com/vladislavdragonenkov/booking/internal/service/policy"
)

const (
	opCreate    = "create"
	opCancel    = "cancel"
	opSetStatus = "set_status"
)

// Dependencies — обязательные хранилища и источник identity для Coordinator.
type Dependencies struct {
	Rules        domain.RuleRepository
	Resources    domain.ResourceStore
	Reservations domain.ReservationStore
	Audit        domain.AuditStore
	Identity     domain.IdentityContext
}

// Coordinator выполняет create/cancel/setStatus, сериализуя их по ресурсу.
type Coordinator struct {
	rules        domain.RuleRepository
	resources    domain.ResourceStore
	reservations domain.ReservationStore
	identity     domain.IdentityContext

	engine  *policy.Engine
	decider *policy.ApprovalDecider
	ledger  *Ledger
	audit   *AuditLog

	locker       Locker
	notifier     domain.Notifier
	metrics      *metrics.BookingMetrics
	logger       *log.Entry
	validate     *validator.Validate
	now          func() time.Time
	lockTimeout  time.Duration
	opTimeout    time.Duration
	overlapCheck bool
}

// NewCoordinator собирает координатор из хранилищ и опций.
func NewCoordinator(deps Dependencies, options ...Option) *Coordinator {
	opts := Options{
		LockTimeout: defaultLockTimeout,
		OpTimeout:   defaultOpTimeout,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "booking")
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	locker := opts.Locker
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}

	return &Coordinator{
		rules:        deps.Rules,
		resources:    deps.Resources,
		reservations: deps.Reservations,
		identity:     deps.Identity,
		engine:       policy.NewEngine(policy.WithClock(now)),
		decider:      policy.NewApprovalDecider(),
		ledger:       NewLedger(deps.Resources, deps.Reservations),
		audit:        NewAuditLog(deps.Audit, opts.Metrics, now),
		locker:       locker,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		logger:       logger,
		validate:     validator.New(),
		now:          now,
		lockTimeout:  opts.LockTimeout,
		opTimeout:    opts.OpTimeout,
		overlapCheck: opts.OverlapCheck,
	}
}

// Create проверяет запрос по правилам, сохраняет бронирование, занимает ресурс
// и пишет запись create в журнал. При нарушении правила ничего не записывается.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (reservation domain.Reservation, err error) {
	defer c.track(opCreate)(&err)

	actor, err := c.currentActor(ctx)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := checkStruct(c.validate, req); err != nil {
		return domain.Reservation{}, err
	}

	requesterID := req.RequesterID
	if requesterID == "" {
		requesterID = actor.ID
	}
	if requesterID != actor.ID && !actor.IsAdmin {
		return domain.Reservation{}, fmt.Errorf("%w: only admins may book on behalf of another user", domain.ErrUnauthorized)
	}

	rules, err := c.loadRules(ctx)
	if err != nil {
		return domain.Reservation{}, err
	}

	// Лимит активных броней считается по всем ресурсам заявителя, поэтому
	// подсчёт и запись сериализуются по заявителю. Порядок: заявитель, затем ресурс.
	if rules.LimitsActive(req.ResourceType) {
		unlockRequester, err := c.lockKey(ctx, requesterLockKey(requesterID))
		if err != nil {
			return domain.Reservation{}, err
		}
		defer unlockRequester()
	}

	unlock, err := c.lock(ctx, req.ResourceID)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer unlock()

	opCtx, cancel := c.operationContext(ctx)
	defer cancel()

	resource, err := c.resources.Get(opCtx, req.ResourceID)
	if err != nil {
		return domain.Reservation{}, storeError("load resource", err)
	}
	if resource.Type != req.ResourceType {
		return domain.Reservation{}, fmt.Errorf("%w: resource %s is a %s, not a %s",
			domain.ErrInvalidRequest, resource.ID, resource.Type, req.ResourceType)
	}

	usage, err := c.usage(opCtx, requesterID)
	if err != nil {
		return domain.Reservation{}, err
	}

	policyReq := req.policyRequest(requesterID)
	result, err := c.engine.Validate(policyReq, rules, usage)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !result.Valid {
		if c.metrics != nil {
			c.metrics.RecordValidationFailure(string(result.Violation.Reason))
		}
		c.logger.WithFields(log.Fields{
			"resource_id":  req.ResourceID,
			"requester_id": requesterID,
			"reason":       result.Violation.Reason,
			"rule_id":      result.Violation.RuleID,
		}).Info("reservation rejected by policy")
		return domain.Reservation{}, result.Err()
	}

	if c.overlapCheck {
		if err := c.checkOverlap(opCtx, req); err != nil {
			return domain.Reservation{}, err
		}
	}

	autoApproved := c.decider.ShouldAutoApprove(policyReq, actor.IsAdmin, rules)
	status := domain.ReservationStatusPending
	if autoApproved {
		status = domain.ReservationStatusApproved
	}

	now := c.now()
	reservation = domain.Reservation{
		ID:           uuid.NewString(),
		ResourceID:   req.ResourceID,
		ResourceType: req.ResourceType,
		RequesterID:  requesterID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       status,
		Purpose:      req.Purpose,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.reservations.Add(opCtx, reservation); err != nil {
		return domain.Reservation{}, domain.NewOperationError("persist reservation", err)
	}

	if err := c.ledger.Hold(opCtx, reservation.ResourceID); err != nil {
		c.rollback(reservation.ID, "hold resource", func() error {
			return c.reservations.UpdateStatus(opCtx, reservation.ID, domain.ReservationStatusCancelled, c.now())
		})
		return domain.Reservation{}, domain.NewOperationError("hold resource", err)
	}

	detail := "auto-approved"
	if !autoApproved {
		detail = "pending admin approval"
	}
	if _, err := c.audit.Record(opCtx, reservation.ID, actor.ID, domain.AuditActionCreate, detail); err != nil {
		c.rollback(reservation.ID, "audit create", func() error {
			return c.reservations.UpdateStatus(opCtx, reservation.ID, domain.ReservationStatusCancelled, c.now())
		}, func() error {
			_, err := c.ledger.Release(opCtx, reservation.ResourceID)
			return err
		})
		return domain.Reservation{}, domain.NewOperationError("record audit entry", err)
	}

	if c.metrics != nil {
		c.metrics.RecordReservationCreated(string(status))
	}
	c.logger.WithFields(log.Fields{
		"reservation_id": reservation.ID,
		"resource_id":    reservation.ResourceID,
		"requester_id":   requesterID,
		"status":         status,
	}).Info("reservation created")

	c.notify(opCtx, domain.AuditActionCreate, reservation)
	return reservation, nil
}

// Cancel переводит бронирование в cancelled и освобождает ресурс.
// Повторная отмена и отмена отклонённого бронирования возвращают ErrInvalidTransition.
func (c *Coordinator) Cancel(ctx context.Context, id string) (err error) {
	defer c.track(opCancel)(&err)

	actor, err := c.currentActor(ctx)
	if err != nil {
		return err
	}

	return c.withReservation(ctx, id, func(opCtx context.Context, reservation domain.Reservation) error {
		if !actor.IsAdmin && actor.ID != reservation.RequesterID {
			return fmt.Errorf("%w: reservation %s belongs to another user", domain.ErrUnauthorized, reservation.ID)
		}
		if !reservation.Status.CanTransitionTo(domain.ReservationStatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, reservation.Status, domain.ReservationStatusCancelled)
		}

		previous := reservation.Status
		reservation.Status = domain.ReservationStatusCancelled
		reservation.UpdatedAt = c.now()
		if err := c.reservations.UpdateStatus(opCtx, reservation.ID, reservation.Status, reservation.UpdatedAt); err != nil {
			return domain.NewOperationError("update reservation status", err)
		}

		restoreStatus := func() error {
			return c.reservations.UpdateStatus(opCtx, reservation.ID, previous, c.now())
		}
		if _, err := c.ledger.Release(opCtx, reservation.ResourceID); err != nil {
			c.rollback(reservation.ID, "release resource", restoreStatus)
			return domain.NewOperationError("release resource", err)
		}
		if _, err := c.audit.Record(opCtx, reservation.ID, actor.ID, domain.AuditActionCancel, fmt.Sprintf("cancelled from %s", previous)); err != nil {
			c.rollback(reservation.ID, "audit cancel", restoreStatus, func() error {
				return c.ledger.Hold(opCtx, reservation.ResourceID)
			})
			return domain.NewOperationError("record audit entry", err)
		}

		if c.metrics != nil {
			c.metrics.RecordReservationCancelled()
		}
		c.logger.WithFields(log.Fields{
			"reservation_id": reservation.ID,
			"resource_id":    reservation.ResourceID,
			"actor_id":       actor.ID,
		}).Info("reservation cancelled")

		c.notify(opCtx, domain.AuditActionCancel, reservation)
		return nil
	})
}

// SetStatus фиксирует решение администратора по pending-бронированию.
// Допустимы только approved и rejected; флаг доступности ресурса не меняется.
func (c *Coordinator) SetStatus(ctx context.Context, id string, status domain.ReservationStatus) (err error) {
	defer c.track(opSetStatus)(&err)

	var action domain.AuditAction
	switch status {
	case domain.ReservationStatusApproved:
		action = domain.AuditActionApprove
	case domain.ReservationStatusRejected:
		action = domain.AuditActionReject
	default:
		return fmt.Errorf("%w: status must be approved or rejected, got %q", domain.ErrInvalidRequest, status)
	}

	actor, err := c.currentActor(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		return fmt.Errorf("%w: only admins may review reservations", domain.ErrUnauthorized)
	}

	return c.withReservation(ctx, id, func(opCtx context.Context, reservation domain.Reservation) error {
		if !reservation.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, reservation.Status, status)
		}

		previous := reservation.Status
		reservation.Status = status
		reservation.UpdatedAt = c.now()
		if err := c.reservations.UpdateStatus(opCtx, reservation.ID, status, reservation.UpdatedAt); err != nil {
			return domain.NewOperationError("update reservation status", err)
		}

		restoreStatus := func() error {
			return c.reservations.UpdateStatus(opCtx, reservation.ID, previous, c.now())
		}
		if _, err := c.audit.Record(opCtx, reservation.ID, actor.ID, action, fmt.Sprintf("%s -> %s", previous, status)); err != nil {
			c.rollback(reservation.ID, "audit status change", restoreStatus)
			return domain.NewOperationError("record audit entry", err)
		}

		if c.metrics != nil {
			c.metrics.RecordStatusChange(string(status))
		}
		c.logger.WithFields(log.Fields{
			"reservation_id": reservation.ID,
			"actor_id":       actor.ID,
			"status":         status,
		}).Info("reservation reviewed")

		c.notify(opCtx, action, reservation)
		return nil
	})
}

// List возвращает бронирования по фильтру без дополнительной логики.
func (c *Coordinator) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	reservations, err := c.reservations.List(ctx, filter)
	if err != nil {
		return nil, domain.NewOperationError("list reservations", err)
	}
	return reservations, nil
}

// History возвращает журнал одного бронирования в порядке записи.
func (c *Coordinator) History(ctx context.Context, reservationID string) ([]domain.AuditEntry, error) {
	if _, err := c.reservations.Get(ctx, reservationID); err != nil {
		return nil, storeError("load reservation", err)
	}
	entries, err := c.audit.History(ctx, reservationID)
	if err != nil {
		return nil, domain.NewOperationError("list audit entries", err)
	}
	return entries, nil
}

// AuditTrail возвращает весь журнал, новые записи первыми.
func (c *Coordinator) AuditTrail(ctx context.Context) ([]domain.AuditEntry, error) {
	entries, err := c.audit.Recent(ctx)
	if err != nil {
		return nil, domain.NewOperationError("list audit entries", err)
	}
	return entries, nil
}

// withReservation находит бронирование, блокирует его ресурс и перечитывает запись под блокировкой.
func (c *Coordinator) withReservation(ctx context.Context, id string, fn func(context.Context, domain.Reservation) error) error {
	current, err := c.reservations.Get(ctx, id)
	if err != nil {
		return storeError("load reservation", err)
	}

	unlock, err := c.lock(ctx, current.ResourceID)
	if err != nil {
		return err
	}
	defer unlock()

	opCtx, cancel := c.operationContext(ctx)
	defer cancel()

	reservation, err := c.reservations.Get(opCtx, id)
	if err != nil {
		return storeError("reload reservation", err)
	}
	return fn(opCtx, reservation)
}

func (c *Coordinator) lock(ctx context.Context, resourceID string) (func(), error) {
	return c.lockKey(ctx, resourceID)
}

func (c *Coordinator) lockKey(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	unlock, err := c.locker.Lock(lockCtx, key)
	if err != nil {
		return nil, domain.NewOperationError("lock "+key, err)
	}
	return unlock, nil
}

func requesterLockKey(requesterID string) string {
	return "requester:" + requesterID
}

func (c *Coordinator) loadRules(ctx context.Context) (domain.RuleSet, error) {
	opCtx, cancel := c.operationContext(ctx)
	defer cancel()

	rules, err := c.rules.List(opCtx)
	if err != nil {
		return nil, domain.NewOperationError("load rules", err)
	}
	return rules, nil
}

// operationContext отвязывает шаги записи от отмены вызывающего: начатая операция доводится до конца.
func (c *Coordinator) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
}

func (c *Coordinator) currentActor(ctx context.Context) (domain.Actor, error) {
	if c.identity == nil {
		return domain.Actor{}, fmt.Errorf("%w: identity context is not configured", domain.ErrUnauthorized)
	}
	actor, err := c.identity.CurrentActor(ctx)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if actor.ID == "" {
		return domain.Actor{}, fmt.Errorf("%w: actor id is empty", domain.ErrUnauthorized)
	}
	return actor, nil
}

func (c *Coordinator) usage(ctx context.Context, requesterID string) (policy.Usage, error) {
	live, err := c.reservations.List(ctx, domain.ReservationFilter{
		RequesterID: requesterID,
		Statuses:    []domain.ReservationStatus{domain.ReservationStatusPending, domain.ReservationStatusApproved},
	})
	if err != nil {
		return policy.Usage{}, domain.NewOperationError("count active reservations", err)
	}

	usage := policy.Usage{ActiveByType: make(map[domain.ResourceType]int)}
	for _, r := range live {
		usage.ActiveByType[r.ResourceType]++
	}
	return usage, nil
}

func (c *Coordinator) checkOverlap(ctx context.Context, req CreateRequest) error {
	live, err := c.ledger.LiveReservations(ctx, req.ResourceID)
	if err != nil {
		return domain.NewOperationError("check overlap", err)
	}
	for _, existing := range live {
		if existing.Overlaps(req.StartTime, req.EndTime) {
			return fmt.Errorf("%w: overlaps reservation %s", domain.ErrResourceConflict, existing.ID)
		}
	}
	return nil
}

// rollback выполняет компенсирующие шаги после сбоя хранилища; их ошибки только логируются.
func (c *Coordinator) rollback(reservationID, step string, undo ...func() error) {
	for _, fn := range undo {
		if err := fn(); err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"reservation_id": reservationID,
				"step":           step,
			}).Error("compensation failed, state may be inconsistent")
		}
	}
}

func (c *Coordinator) notify(ctx context.Context, action domain.AuditAction, reservation domain.Reservation) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, domain.NewNotification(action, reservation)); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"reservation_id": reservation.ID,
			"action":         action,
		}).Warn("failed to enqueue notification")
		if c.metrics != nil {
			c.metrics.RecordNotification("failed")
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordNotification("queued")
	}
}

// track учитывает операцию в метриках; вызывается как defer c.track(op)(&err).
func (c *Coordinator) track(op string) func(*error) {
	started := time.Now()
	if c.metrics != nil {
		c.metrics.RecordOperationStarted()
	}
	return func(errp *error) {
		if c.metrics == nil {
			return
		}
		c.metrics.RecordOperationFinished(op, time.Since(started))
		var opErr *domain.OperationError
		if errp != nil && errors.As(*errp, &opErr) {
			c.metrics.RecordOperationError(op)
		}
	}
}

// storeError сохраняет ErrNotFound как есть, остальные сбои оборачивает в OperationError.
func storeError(op string, err error) error {
	if domain.IsNotFound(err) {
		return err
	}
	return domain.NewOperationError(op, err)
}

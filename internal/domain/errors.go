package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора ресурса.
	ErrResourceIDRequired = errors.New("resource_id is required")
	// Ошибка отсутствующего названия ресурса.
	ErrResourceNameRequired = errors.New("resource name is required")
	// Ошибка неизвестного типа ресурса.
	ErrResourceTypeInvalid = errors.New("resource type must be room or vehicle")
	// Ошибка некорректной вместимости комнаты.
	ErrRoomCapacityInvalid = errors.New("room capacity must be greater than zero")
	// Ошибка отсутствующего госномера автомобиля.
	ErrLicensePlateRequired = errors.New("vehicle license plate is required")
	// Ошибка некорректного числа мест в автомобиле.
	ErrVehicleSeatsInvalid = errors.New("vehicle seats must be greater than zero")
	// Ошибка отсутствующего автора бронирования.
	ErrRequesterRequired = errors.New("requester_id is required")
	// Ошибка интервала, в котором начало не раньше конца.
	ErrTimeRangeInvalid = errors.New("start_time must be before end_time")
	// Ошибка неизвестного статуса бронирования.
	ErrStatusInvalid = errors.New("reservation status is invalid")
	// Ошибка неизвестной области действия правила.
	ErrRuleScopeInvalid = errors.New("rule scope must be room, vehicle or all")
	// Ошибка отсутствующего имени правила.
	ErrRuleNameRequired = errors.New("rule name is required")

	// ErrInvalidRequest — запрос не проходит базовую проверку входных данных.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrValidationFailed — бронирование нарушает одно из применимых правил.
	ErrValidationFailed = errors.New("validation failed")
	// ErrNotFound — идентификатор не найден в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrReservationNotFound возвращается, если бронирование не найдено.
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	// ErrResourceNotFound возвращается, если ресурс не найден.
	ErrResourceNotFound = fmt.Errorf("resource %w", ErrNotFound)
	// ErrRuleNotFound возвращается, если правило не найдено.
	ErrRuleNotFound = fmt.Errorf("rule %w", ErrNotFound)
	// ErrAlreadyExists — запись с таким идентификатором уже существует.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidTransition — переход статуса не разрешён машиной состояний.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthorized — у текущего пользователя нет прав на операцию.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResourceConflict — интервал пересекается с действующим бронированием ресурса.
	ErrResourceConflict = errors.New("resource already booked for the requested interval")
	// ErrNoActor — в контексте отсутствует пользователь.
	ErrNoActor = errors.New("no actor in context")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationReason — причина отказа правила.
type ValidationReason string

const (
	ReasonDurationExceeded    ValidationReason = "duration_exceeded"
	ReasonAdvanceTooEarly     ValidationReason = "advance_too_early"
	ReasonAdvanceTooLate      ValidationReason = "advance_too_late"
	ReasonActiveLimitExceeded ValidationReason = "active_limit_exceeded"
	ReasonBlackoutDate        ValidationReason = "blackout_date"
)

var (
	ErrDurationExceeded    = errors.New(string(ReasonDurationExceeded))
	ErrAdvanceTooEarly     = errors.New(string(ReasonAdvanceTooEarly))
	ErrAdvanceTooLate      = errors.New(string(ReasonAdvanceTooLate))
	ErrActiveLimitExceeded = errors.New(string(ReasonActiveLimitExceeded))
	ErrBlackoutDate        = errors.New(string(ReasonBlackoutDate))
)

var reasonErrors = map[ValidationReason]error{
	ReasonDurationExceeded:    ErrDurationExceeded,
	ReasonAdvanceTooEarly:     ErrAdvanceTooEarly,
	ReasonAdvanceTooLate:      ErrAdvanceTooLate,
	ReasonActiveLimitExceeded: ErrActiveLimitExceeded,
	ReasonBlackoutDate:        ErrBlackoutDate,
}

// ValidationError описывает нарушение конкретного правила.
// errors.Is совпадает и с ErrValidationFailed, и с sentinel-ошибкой причины.
type ValidationError struct {
	Reason   ValidationReason
	RuleID   string
	RuleName string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.RuleName != "" {
		return fmt.Sprintf("validation failed (%s, rule %q): %s", e.Reason, e.RuleName, e.Message)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrValidationFailed}
	if reasonErr, ok := reasonErrors[e.Reason]; ok {
		errs = append(errs, reasonErr)
	}
	return errs
}

// OperationError оборачивает сбой хранилища при выполнении операции.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError оборачивает err, сохраняя nil.
func NewOperationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}

// ValidationReasonOf извлекает причину отказа из цепочки ошибок.
func ValidationReasonOf(err error) (ValidationReason, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}

// IsNotFound проверяет, что ошибка означает отсутствие записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

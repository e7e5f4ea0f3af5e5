package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/service/policy"
)

// CreateRequest — входные данные для создания бронирования.
type CreateRequest struct {
	ResourceID   string              `validate:"required"`
	ResourceType domain.ResourceType `validate:"required,oneof=room vehicle"`
	// RequesterID по умолчанию равен текущему пользователю; чужой ID может указать только администратор.
	RequesterID string
	StartTime   time.Time `validate:"required"`
	EndTime     time.Time `validate:"required,gtfield=StartTime"`
	Purpose     string    `validate:"max=500"`
}

func (r CreateRequest) policyRequest(requesterID string) policy.Request {
	return policy.Request{
		ResourceType: r.ResourceType,
		RequesterID:  requesterID,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
}

func checkStruct(v *validator.Validate, req CreateRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(parts, ", "))
}

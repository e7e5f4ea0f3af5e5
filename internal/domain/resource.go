package domain

import "time"

// ResourceType различает варианты бронируемых ресурсов.
type ResourceType string

const (
	// ResourceTypeRoom — переговорная комната.
	ResourceTypeRoom ResourceType = "room"
	// ResourceTypeVehicle — служебный автомобиль.
	ResourceTypeVehicle ResourceType = "vehicle"
)

// Valid сообщает, является ли тип одним из поддерживаемых вариантов.
func (t ResourceType) Valid() bool {
	return t == ResourceTypeRoom || t == ResourceTypeVehicle
}

// Resource описывает бронируемый ресурс (комнату или автомобиль).
type Resource struct {
	ID          string
	Type        ResourceType
	Name        string
	IsAvailable bool
	// Capacity заполняется только для комнат.
	Capacity int
	// LicensePlate и Seats заполняются только для автомобилей.
	LicensePlate string
	Seats        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate проверяет, что поля заполнены в соответствии с вариантом ресурса.
func (r *Resource) Validate() []error {
	var errs []error

	if r.ID == "" {
		errs = append(errs, ErrResourceIDRequired)
	}
	if r.Name == "" {
		errs = append(errs, ErrResourceNameRequired)
	}

	switch r.Type {
	case ResourceTypeRoom:
		if r.Capacity <= 0 {
			errs = append(errs, ErrRoomCapacityInvalid)
		}
	case ResourceTypeVehicle:
		if r.LicensePlate == "" {
			errs = append(errs, ErrLicensePlateRequired)
		}
		if r.Seats <= 0 {
			errs = append(errs, ErrVehicleSeatsInvalid)
		}
	default:
		errs = append(errs, ErrResourceTypeInvalid)
	}

	return errs
}

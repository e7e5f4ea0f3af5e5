package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/service/policy"
)

// defaultResources — стартовый набор ресурсов: две комнаты и два автомобиля.
func defaultResources() []domain.Resource {
	return []domain.Resource{
		{ID: "room-a", Type: domain.ResourceTypeRoom, Name: "Room A", Capacity: 10, IsAvailable: true},
		{ID: "room-b", Type: domain.ResourceTypeRoom, Name: "Room B", Capacity: 20, IsAvailable: true},
		{ID: "vehicle-1", Type: domain.ResourceTypeVehicle, Name: "Renault Clio", LicensePlate: "AB-123-CD", Seats: 5, IsAvailable: true},
		{ID: "vehicle-2", Type: domain.ResourceTypeVehicle, Name: "Peugeot 308", LicensePlate: "EF-456-GH", Seats: 5, IsAvailable: true},
	}
}

// seedDefaults заполняет пустые хранилища правилами и ресурсами по умолчанию.
// Непустые хранилища не трогаются.
func seedDefaults(ctx context.Context, rules domain.RuleRepository, resources domain.ResourceStore, logger *log.Entry) error {
	existingRules, err := rules.List(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	if len(existingRules) == 0 {
		for _, rule := range policy.DefaultRules() {
			if _, err := rules.Add(ctx, rule); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return fmt.Errorf("seed rule %s: %w", rule.ID, err)
			}
		}
		logger.WithField("count", len(policy.DefaultRules())).Info("добавлены правила по умолчанию")
	}

	existingResources, err := resources.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list resources: %w", err)
	}
	if len(existingResources) == 0 {
		seeded := defaultResources()
		for _, resource := range seeded {
			if err := resources.Add(ctx, resource); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return fmt.Errorf("seed resource %s: %w", resource.ID, err)
			}
		}
		logger.WithField("count", len(seeded)).Info("добавлены ресурсы по умолчанию")
	}
	return nil
}

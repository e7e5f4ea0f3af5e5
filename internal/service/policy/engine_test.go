package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedNow }))
}

func roomRule() domain.ValidationRule {
	return domain.ValidationRule{
		ID:        "room",
		Name:      "rooms",
		AppliesTo: domain.RuleScopeRoom,
		Conditions: domain.RuleConditions{
			MaxDurationHours:      domain.Float64(8),
			MinAdvanceDays:        domain.Float64(1),
			MaxAdvanceDays:        domain.Float64(30),
			RequiresAdminApproval: domain.Bool(false),
		},
		IsActive: true,
	}
}

func roomRequest(startIn, length time.Duration) Request {
	start := fixedNow.Add(startIn)
	return Request{
		ResourceType: domain.ResourceTypeRoom,
		RequesterID:  "user-1",
		StartTime:    start,
		EndTime:      start.Add(length),
	}
}

func TestEngine_Validate_Example(t *testing.T) {
	engine := newTestEngine()
	rules := domain.RuleSet{roomRule()}

	res, err := engine.Validate(roomRequest(48*time.Hour, 4*time.Hour), rules, Usage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid || res.Err() != nil {
		t.Fatalf("expected valid result, got %+v", res.Violation)
	}

	res, err = engine.Validate(roomRequest(48*time.Hour, 9*time.Hour), rules, Usage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Fatal("expected violation for 9h booking")
	}
	if !errors.Is(res.Err(), domain.ErrDurationExceeded) {
		t.Fatalf("expected duration exceeded, got %v", res.Err())
	}
	if res.Violation.RuleID != "room" {
		t.Fatalf("expected rule id room, got %s", res.Violation.RuleID)
	}
}

func TestEngine_Validate_Reasons(t *testing.T) {
	engine := newTestEngine()

	blackout := roomRule()
	blackout.Conditions = domain.RuleConditions{
		BlackoutDates: []time.Time{time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	limited := roomRule()
	limited.Conditions = domain.RuleConditions{MaxActiveReservations: domain.Int(2)}

	cases := []struct {
		name   string
		rules  domain.RuleSet
		req    Request
		usage  Usage
		reason domain.ValidationReason
	}{
		{
			name:   "too soon",
			rules:  domain.RuleSet{roomRule()},
			req:    roomRequest(12*time.Hour, time.Hour),
			reason: domain.ReasonAdvanceTooEarly,
		},
		{
			name:   "too far",
			rules:  domain.RuleSet{roomRule()},
			req:    roomRequest(31*24*time.Hour, time.Hour),
			reason: domain.ReasonAdvanceTooLate,
		},
		{
			name:   "blackout day",
			rules:  domain.RuleSet{blackout},
			req:    roomRequest(4*24*time.Hour-2*time.Hour, 4*time.Hour),
			reason: domain.ReasonBlackoutDate,
		},
		{
			name:   "active limit",
			rules:  domain.RuleSet{limited},
			req:    roomRequest(48*time.Hour, time.Hour),
			usage:  Usage{ActiveByType: map[domain.ResourceType]int{domain.ResourceTypeRoom: 2}},
			reason: domain.ReasonActiveLimitExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Validate(tc.req, tc.rules, tc.usage)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Valid {
				t.Fatal("expected violation")
			}
			if res.Violation.Reason != tc.reason {
				t.Fatalf("expected reason %s, got %s", tc.reason, res.Violation.Reason)
			}
		})
	}
}

func TestEngine_Validate_FirstViolationWins(t *testing.T) {
	engine := newTestEngine()

	first := roomRule()
	first.ID = "first"
	first.Conditions = domain.RuleConditions{MinAdvanceDays: domain.Float64(3)}
	second := roomRule()
	second.ID = "second"
	second.Conditions = domain.RuleConditions{MaxDurationHours: domain.Float64(1)}

	res, err := engine.Validate(roomRequest(48*time.Hour, 2*time.Hour), domain.RuleSet{first, second}, Usage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Violation == nil || res.Violation.RuleID != "first" {
		t.Fatalf("expected first rule to fail, got %+v", res.Violation)
	}
	if res.Violation.Reason != domain.ReasonAdvanceTooEarly {
		t.Fatalf("expected advance_too_early, got %s", res.Violation.Reason)
	}
}

func TestEngine_Validate_ActiveLimitDoesNotStopEvaluation(t *testing.T) {
	engine := newTestEngine()

	limited := roomRule()
	limited.ID = "limited"
	limited.Conditions = domain.RuleConditions{MaxActiveReservations: domain.Int(3)}
	strict := roomRule()
	strict.ID = "strict"
	strict.Conditions = domain.RuleConditions{MaxDurationHours: domain.Float64(1)}

	res, err := engine.Validate(roomRequest(48*time.Hour, 2*time.Hour), domain.RuleSet{limited, strict}, Usage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Violation == nil || res.Violation.RuleID != "strict" {
		t.Fatalf("expected later rule to be evaluated, got %+v", res.Violation)
	}
}

func TestEngine_Validate_SkipsInactiveAndForeignRules(t *testing.T) {
	engine := newTestEngine()

	inactive := roomRule()
	inactive.IsActive = false
	inactive.Conditions.MaxDurationHours = domain.Float64(1)

	vehicle := roomRule()
	vehicle.AppliesTo = domain.RuleScopeVehicle
	vehicle.Conditions.MaxDurationHours = domain.Float64(1)

	empty := domain.ValidationRule{ID: "empty", Name: "no conditions", AppliesTo: domain.RuleScopeAll, IsActive: true}

	res, err := engine.Validate(roomRequest(48*time.Hour, 2*time.Hour), domain.RuleSet{inactive, vehicle, empty}, Usage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid result, got %v", res.Err())
	}
}

func TestEngine_Validate_AllScopeCountsEveryType(t *testing.T) {
	engine := newTestEngine()

	global := domain.ValidationRule{
		ID:         "global",
		Name:       "global limit",
		AppliesTo:  domain.RuleScopeAll,
		Conditions: domain.RuleConditions{MaxActiveReservations: domain.Int(2)},
		IsActive:   true,
	}
	usage := Usage{ActiveByType: map[domain.ResourceType]int{
		domain.ResourceTypeRoom:    1,
		domain.ResourceTypeVehicle: 1,
	}}

	res, err := engine.Validate(roomRequest(48*time.Hour, time.Hour), domain.RuleSet{global}, usage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(res.Err(), domain.ErrActiveLimitExceeded) {
		t.Fatalf("expected active limit exceeded, got %v", res.Err())
	}
}

func TestEngine_Validate_InvalidInput(t *testing.T) {
	engine := newTestEngine()

	req := roomRequest(48*time.Hour, 0)
	if _, err := engine.Validate(req, nil, Usage{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty interval, got %v", err)
	}

	req = roomRequest(48*time.Hour, time.Hour)
	req.ResourceType = "boat"
	if _, err := engine.Validate(req, nil, Usage{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown type, got %v", err)
	}
}

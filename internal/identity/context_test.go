package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

func TestContextIdentity(t *testing.T) {
	id := NewContextIdentity()

	if _, err := id.CurrentActor(context.Background()); !errors.Is(err, domain.ErrNoActor) {
		t.Fatalf("expected ErrNoActor, got %v", err)
	}

	ctx := WithActor(context.Background(), domain.Actor{ID: "admin-1", IsAdmin: true})
	actor, err := id.CurrentActor(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "admin-1" || !actor.IsAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestStatic(t *testing.T) {
	actor, err := Static{ID: "system", IsAdmin: true}.CurrentActor(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "system" || !actor.IsAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

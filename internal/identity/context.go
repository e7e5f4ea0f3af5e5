package identity

import (
	"context"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

type actorKey struct{}

// WithActor возвращает контекст, несущий пользователя.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext извлекает пользователя из контекста.
func FromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// ContextIdentity реализует IdentityContext поверх значений контекста.
// Транспортный слой кладёт пользователя в контекст после аутентификации.
type ContextIdentity struct{}

// NewContextIdentity создаёт IdentityContext.
func NewContextIdentity() ContextIdentity {
	return ContextIdentity{}
}

// CurrentActor возвращает пользователя из контекста или domain.ErrNoActor.
func (ContextIdentity) CurrentActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := FromContext(ctx)
	if !ok {
		return domain.Actor{}, domain.ErrNoActor
	}
	return actor, nil
}

// Static всегда возвращает одного и того же пользователя (фоновые задачи, CLI).
type Static domain.Actor

// CurrentActor возвращает зафиксированного пользователя.
func (s Static) CurrentActor(context.Context) (domain.Actor, error) {
	return domain.Actor(s), nil
}

var (
	_ domain.IdentityContext = ContextIdentity{}
	_ domain.IdentityContext = Static{}
)

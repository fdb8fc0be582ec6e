package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of event recorded in a transaction's history.
type Action string

const (
	ActionCreated            Action = "created"
	ActionMoved              Action = "moved"
	ActionEdited             Action = "edited"
	ActionSent               Action = "sent"
	ActionAcknowledged       Action = "acknowledged"
	ActionDeleted            Action = "deleted"
	ActionRestored           Action = "restored"
	ActionPermanentlyDeleted Action = "permanently-deleted"
)

// HistoryEntry is an append-only audit record of one lifecycle event.
// FromStage, ToStage and Actor are empty when not applicable.
type HistoryEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Action        Action
	FromStage     Stage
	ToStage       Stage
	Timestamp     time.Time
	Actor         string
	Details       map[string]any
	Signature     []byte
}

// IsSigned reports whether the entry carries a signature.
func (h *HistoryEntry) IsSigned() bool {
	return len(h.Signature) > 0
}

type actorKey struct{}

// WithActor returns a context whose history entries are attributed to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or an empty string.
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

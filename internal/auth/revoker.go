package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/garment-erp/internal/core/events"
)

type SessionRevokerService interface {
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}

type EventSubscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// SessionRevoker ends every session of a user after deactivation, a role
// change or a password change.
type SessionRevoker struct {
	sessions SessionRevokerService
	logger   *slog.Logger
}

func NewSessionRevoker(sessions SessionRevokerService, logger *slog.Logger) *SessionRevoker {
	return &SessionRevoker{sessions: sessions, logger: logger}
}

func (r *SessionRevoker) Register(bus EventSubscriber) {
	for _, eventType := range events.UserEventTypes() {
		bus.Subscribe(eventType, r.Handle)
	}
}

func (r *SessionRevoker) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	n, err := r.sessions.RevokeUserSessions(ctx, e.UserID)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "sessions revoked after user change",
		"user_id", e.UserID,
		"event_type", e.EventType(),
		"changed_by", e.ChangedBy,
		"revoked", n)
	return nil
}

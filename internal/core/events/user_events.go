package events

const (
	EventTypeUserDeactivated     = "user.deactivated"
	EventTypeUserRoleChanged     = "user.role_changed"
	EventTypeUserPasswordChanged = "user.password_changed"
)

// UserChangedEvent is published after a security-relevant mutation of a user.
type UserChangedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	ChangedBy string `json:"changed_by"`
}

func newUserChangedEvent(eventType, userID, changedBy string, data map[string]interface{}) *UserChangedEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["user_id"] = userID
	data["changed_by"] = changedBy
	return &UserChangedEvent{
		BaseEvent: NewBaseEvent(eventType, data),
		UserID:    userID,
		ChangedBy: changedBy,
	}
}

func NewUserDeactivatedEvent(userID, changedBy string) *UserChangedEvent {
	return newUserChangedEvent(EventTypeUserDeactivated, userID, changedBy, nil)
}

func NewUserRoleChangedEvent(userID, changedBy, oldRole, newRole string) *UserChangedEvent {
	return newUserChangedEvent(EventTypeUserRoleChanged, userID, changedBy, map[string]interface{}{
		"old_role": oldRole,
		"new_role": newRole,
	})
}

func NewUserPasswordChangedEvent(userID, changedBy string) *UserChangedEvent {
	return newUserChangedEvent(EventTypeUserPasswordChanged, userID, changedBy, nil)
}

// UserEventTypes lists every event that should end the user's sessions.
func UserEventTypes() []string {
	return []string{
		EventTypeUserDeactivated,
		EventTypeUserRoleChanged,
		EventTypeUserPasswordChanged,
	}
}

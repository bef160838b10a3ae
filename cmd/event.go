package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect and replay user lifecycle events`,
}

var listEventsCmd = &cobra.Command{
	Use:   "types",
	Short: "List the user lifecycle event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.UserEventTypes() {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Replay a user lifecycle event",
	Long: `Publish a user lifecycle event to a local bus with the session revoker subscribed,
so the user's sessions end exactly as they would after the change through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := buildUserEvent(args[0], eventUserID, eventChangedBy)
		if err != nil {
			return err
		}
		return withSessionService(func(ctx context.Context, sessions *auth.Service, log *slog.Logger) error {
			return publishUserEvent(ctx, sessions, event, log)
		})
	},
}

var (
	eventUserID    string
	eventChangedBy string
)

func buildUserEvent(eventType, userID, changedBy string) (*events.UserChangedEvent, error) {
	if userID == "" {
		return nil, fmt.Errorf("--user is required")
	}
	switch eventType {
	case events.EventTypeUserDeactivated:
		return events.NewUserDeactivatedEvent(userID, changedBy), nil
	case events.EventTypeUserRoleChanged:
		return events.NewUserRoleChangedEvent(userID, changedBy, "", ""), nil
	case events.EventTypeUserPasswordChanged:
		return events.NewUserPasswordChangedEvent(userID, changedBy), nil
	default:
		return nil, fmt.Errorf("unknown event type %q, expected one of %s", eventType, strings.Join(events.UserEventTypes(), ", "))
	}
}

func publishUserEvent(ctx context.Context, sessions auth.SessionRevokerService, event events.Event, log *slog.Logger) error {
	bus := events.NewEventBus(log)
	auth.NewSessionRevoker(sessions, log).Register(bus)

	log.Info("publishing user event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventUserID, "user", "", "id of the affected user")
	publishEventCmd.Flags().StringVar(&eventChangedBy, "by", "cli", "who made the change")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}

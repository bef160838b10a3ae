package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultPurgeSchedule = "0 0 * * * *"

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Purger deletes expired sessions on a cron schedule (with a seconds field).
type Purger struct {
	cron     *cron.Cron
	sessions SessionPurger
	schedule string
	timeout  time.Duration
	log      *slog.Logger
}

func NewPurger(sessions SessionPurger, schedule string, log *slog.Logger) *Purger {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	return &Purger{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		schedule: schedule,
		timeout:  time.Minute,
		log:      log,
	}
}

func (p *Purger) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.run); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	p.log.Info("session purger started", "schedule", p.schedule)
	return nil
}

// Stop waits for a running purge to finish.
func (p *Purger) Stop() context.Context {
	return p.cron.Stop()
}

func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.sessions.PurgeExpiredSessions(ctx)
}

func (p *Purger) run() {
	n, err := p.RunOnce(context.Background())
	if err != nil {
		p.log.Error("session purge failed", "error", err)
		return
	}
	p.log.Debug("session purge finished", "deleted", n)
}

// Package jobs hosts the scheduled background work. The only job today is
// the invitation expiry sweep, which is advisory: lazy expiry on
// redemption keeps the registry correct even if the sweep never runs.
package jobs

import (
	"alumbra/coaching-app/internal/service"
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 30 * time.Second

// ExpirySweeper periodically flips overdue valid invitation codes to
// expired so reporting queries see their real state.
type ExpirySweeper struct {
	invitations service.InvitationService
	cron        *cron.Cron
	schedule    string
}

// NewExpirySweeper creates a sweeper on the given cron expression
// (e.g. "@hourly"). An empty schedule disables it.
func NewExpirySweeper(invitations service.InvitationService, schedule string) *ExpirySweeper {
	return &ExpirySweeper{
		invitations: invitations,
		cron:        cron.New(),
		schedule:    schedule,
	}
}

// Start registers the job and begins the schedule.
func (s *ExpirySweeper) Start() error {
	if s.schedule == "" {
		logrus.Info("invitation expiry sweep disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	logrus.WithField("schedule", s.schedule).Info("invitation expiry sweep scheduled")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ExpirySweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	expired, err := s.invitations.Sweep(ctx)
	if err != nil {
		logrus.WithError(err).Warn("invitation expiry sweep failed")
		return
	}
	if expired > 0 {
		logrus.WithField("expired", expired).Info("invitation expiry sweep completed")
	}
}

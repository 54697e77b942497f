package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/tgbridge/internal/session"
)

// Sweeper fails pending calls that outlived their maximum age.
type Sweeper interface {
	Sweep() int
}

// PendingSweepJob drops calls whose reply will never come, e.g. because
// the client they were sent to was closed.
type PendingSweepJob struct {
	Sweeper      Sweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = "@every 30s"
}

var _ Job = (*PendingSweepJob)(nil)

// Name implements Job.
func (j *PendingSweepJob) Name() string { return "pending_sweep" }

// Schedule implements Job.
func (j *PendingSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@every 30s"
}

// Run implements Job.
func (j *PendingSweepJob) Run(_ context.Context) error {
	if n := j.Sweeper.Sweep(); n > 0 {
		j.Logger.Warn("cron: swept stale pending calls", "count", n)
	}
	return nil
}

// SessionLister reports the state of every session.
type SessionLister interface {
	Sessions() []session.Snapshot
}

// SessionReportJob warns about sessions that have not been authorized for
// longer than Grace.
type SessionReportJob struct {
	Sessions     SessionLister
	Grace        time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
	ScheduleExpr string // empty = "*/15 * * * *"
}

var _ Job = (*SessionReportJob)(nil)

// Name implements Job.
func (j *SessionReportJob) Name() string { return "session_report" }

// Schedule implements Job.
func (j *SessionReportJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run implements Job.
func (j *SessionReportJob) Run(_ context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	for _, snap := range j.Sessions.Sessions() {
		if snap.State == session.StateAuthorized || snap.UpdatedAt.IsZero() {
			continue
		}
		if age := now().Sub(snap.UpdatedAt); age >= j.Grace {
			j.Logger.Warn("cron: session not authorized",
				"session", snap.Name,
				"state", snap.State,
				"since", snap.UpdatedAt,
				"error", snap.Error,
			)
		}
	}
	return nil
}

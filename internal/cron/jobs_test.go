package cron_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flemzord/tgbridge/internal/cron"
	"github.com/flemzord/tgbridge/internal/cron/crontest"
	"github.com/flemzord/tgbridge/internal/session"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestPendingSweepJob(t *testing.T) {
	logger, logs := bufferLogger()
	swept := 0
	job := &cron.PendingSweepJob{
		Sweeper: crontest.SweeperFunc(func() int { swept++; return 3 }),
		Logger:  logger,
	}

	assert.Equal(t, "pending_sweep", job.Name())
	assert.Equal(t, "@every 30s", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, swept)
	assert.Contains(t, logs.String(), "count=3")
}

func TestPendingSweepJob_QuietWhenNothingSwept(t *testing.T) {
	logger, logs := bufferLogger()
	job := &cron.PendingSweepJob{
		Sweeper:      crontest.SweeperFunc(func() int { return 0 }),
		Logger:       logger,
		ScheduleExpr: "@every 5s",
	}

	assert.Equal(t, "@every 5s", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, logs.String())
}

type sessionList []session.Snapshot

func (l sessionList) Sessions() []session.Snapshot { return l }

func TestSessionReportJob(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	logger, logs := bufferLogger()
	job := &cron.SessionReportJob{
		Sessions: sessionList{
			{Name: "ok", State: session.StateAuthorized, UpdatedAt: now.Add(-time.Hour)},
			{Name: "stuck", State: session.StateWaitCode, UpdatedAt: now.Add(-10 * time.Minute)},
			{Name: "fresh", State: session.StateWaitResponse, UpdatedAt: now.Add(-time.Second)},
			{Name: "never", State: session.StateUninitialized},
		},
		Grace:  5 * time.Minute,
		Logger: logger,
		Now:    func() time.Time { return now },
	}

	assert.Equal(t, "*/15 * * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	out := logs.String()
	assert.Contains(t, out, "session=stuck")
	assert.Contains(t, out, "state=wait_code")
	assert.NotContains(t, out, "session=ok")
	assert.NotContains(t, out, "session=fresh")
	assert.NotContains(t, out, "session=never")
}

func TestScheduler_WithMockJob(t *testing.T) {
	job := &crontest.MockJob{NameVal: "mock", ScheduleVal: "@hourly"}
	s := cron.NewScheduler(nil)
	require.NoError(t, s.RegisterJob(job))

	require.NoError(t, s.Trigger("mock"))
	require.NoError(t, s.Trigger("mock"))
	assert.Equal(t, 2, job.CallCount())
}

// Package cron runs the bridge's periodic housekeeping: sweeping calls that
// will never be answered and reporting sessions stuck outside the
// authorized state.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs and must be unique per scheduler.
	Name() string

	// Schedule is a cron expression, with an optional leading seconds
	// field, or a descriptor such as "@every 30s".
	Schedule() string

	// Run executes the job. It should return promptly once ctx is done.
	Run(ctx context.Context) error
}

package scheduler

import "context"

// Job is a unit of background work.
//
// Current jobs:
//   - mailbox-redelivery: re-pushes notification records a recipient failed to delete
type Job interface {
	// GetName is the unique job name used in logs and for manual runs.
	GetName() string

	// GetSchedule returns a cron spec such as "@every 5m". An empty spec
	// registers the job for on-demand runs only.
	GetSchedule() string

	Execute(ctx context.Context) error
}

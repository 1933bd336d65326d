package scheduler

import "time"

// Policy arbitrates between clients. SelectNextJob is called while the
// Scheduler holds its policy mutex, so a Policy needs no synchronization
// of its own private state — it may still briefly lock an individual
// ClientState to inspect or pop that client's queue.
type Policy interface {
	// OnClientRegistered is called under the registry write lock when a
	// new client joins.
	OnClientRegistered(clientID string, weight int)

	// SelectNextJob scans clients in order and returns the next job to
	// run, or ok=false if no client currently has queued work.
	SelectNextJob(order []string, clients map[string]*ClientState) (job Job, ok bool)

	// OnJobExecuted is a hook for time-aware policies; the built-in
	// policies embed noOpExecutedHook and ignore it.
	OnJobExecuted(clientID string, duration time.Duration)
}

// noOpExecutedHook gives a Policy a default OnJobExecuted that does
// nothing, so WRR/DRR don't have to define an empty method themselves.
type noOpExecutedHook struct{}

func (noOpExecutedHook) OnJobExecuted(string, time.Duration) {}

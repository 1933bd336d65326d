// Package scheduler implements the fair, multi-tenant job scheduling core:
// per-client queues, pluggable arbitration policies (weighted round robin,
// deficit round robin), and the registry that ties them together. Nothing
// in this package touches the network, the filesystem, or a clock other
// than time.Now/time.Since — it is meant to be embedded by a host program
// that owns the actual worker goroutines.
package scheduler

import "time"

// Job is one unit of work submitted by a client. The zero value is not a
// valid Job outside of signaling "no job available" from SelectNextJob.
type Job struct {
	ClientID    string
	Task        func()
	EnqueueTime time.Time
	JobID       uint64
	CostHint    uint32
}

package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// ClientOption configures a client at registration time. All fields are
// immutable for the client's lifetime once RegisterClient returns.
type ClientOption func(*clientConfig)

type clientConfig struct {
	weight           int
	maxQueueDepth    int
	overflowStrategy OverflowStrategy
}

// WithWeight sets a client's scheduling weight (default 1). Must be >= 1.
func WithWeight(weight int) ClientOption {
	return func(c *clientConfig) { c.weight = weight }
}

// WithMaxQueueDepth caps a client's queue (default 0 = unlimited).
func WithMaxQueueDepth(depth int) ClientOption {
	return func(c *clientConfig) { c.maxQueueDepth = depth }
}

// WithOverflowStrategy sets what happens when a bounded queue is full
// (default Reject).
func WithOverflowStrategy(strategy OverflowStrategy) ClientOption {
	return func(c *clientConfig) { c.overflowStrategy = strategy }
}

// JobOption configures a single submission.
type JobOption func(*jobConfig)

type jobConfig struct {
	costHint uint32
}

// WithCostHint sets the job's cost, consumed by cost-aware policies such
// as DRR (default 1, ignored by WRR).
func WithCostHint(cost uint32) JobOption {
	return func(c *jobConfig) { c.costHint = cost }
}

// Scheduler is the registry of clients plus the arbitration policy that
// picks among them. It is safe for concurrent use by any number of
// submitter and worker goroutines.
type Scheduler struct {
	registryMu sync.RWMutex
	clients    map[string]*ClientState
	order      []string

	policyMu sync.Mutex
	policy   Policy

	nextJobID      atomic.Uint64
	totalProcessed atomic.Uint64
}

// New creates a Scheduler using weighted round robin, matching the
// original default constructor.
func New() *Scheduler {
	return NewWithPolicy(NewWRRPolicy())
}

// NewWithPolicy creates a Scheduler that delegates arbitration to policy.
func NewWithPolicy(policy Policy) *Scheduler {
	return &Scheduler{
		clients:   make(map[string]*ClientState),
		order:     make([]string, 0),
		policy:    policy,
		nextJobID: atomic.Uint64{},
	}
}

// RegisterClient adds a new client to the registry. Weight defaults to 1,
// MaxQueueDepth to 0 (unlimited), and OverflowStrategy to Reject; use the
// With* options to override them.
func (s *Scheduler) RegisterClient(clientID string, opts ...ClientOption) error {
	cfg := clientConfig{weight: 1, overflowStrategy: Reject}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.weight < 1 {
		return newError(ErrInvalidArgument, clientID)
	}

	s.registryMu.Lock()
	defer s.registryMu.Unlock()

	if _, exists := s.clients[clientID]; exists {
		return newError(ErrAlreadyRegistered, clientID)
	}

	cs := newClientState(clientID, cfg.weight, cfg.maxQueueDepth, cfg.overflowStrategy)
	s.clients[clientID] = cs
	s.order = append(s.order, clientID)

	s.policyMu.Lock()
	s.policy.OnClientRegistered(clientID, cfg.weight)
	s.policyMu.Unlock()
	return nil
}

// Submit enqueues task under clientID. It applies the client's overflow
// strategy if the queue is at MaxQueueDepth, and returns ErrUnknownClient
// if clientID was never registered.
func (s *Scheduler) Submit(clientID string, task func(), opts ...JobOption) error {
	cfg := jobConfig{costHint: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.registryMu.RLock()
	client, ok := s.clients[clientID]
	s.registryMu.RUnlock()
	if !ok {
		return newError(ErrUnknownClient, clientID)
	}

	job := Job{
		ClientID:    clientID,
		Task:        task,
		EnqueueTime: time.Now(),
		JobID:       s.nextJobID.Add(1),
		CostHint:    cfg.costHint,
	}

	client.mu.Lock()
	if client.MaxQueueDepth > 0 && client.queueDepth() >= client.MaxQueueDepth {
		switch client.OverflowStrategy {
		case Reject:
			client.overflowCount.Add(1)
			client.mu.Unlock()
			return newError(ErrQueueFull, clientID)

		case Block:
			for client.queueDepth() >= client.MaxQueueDepth {
				client.submitCV.Wait()
			}

		case DropOldest:
			client.queue.Remove(client.queue.Front())
			client.overflowCount.Add(1)

		case DropNewest:
			client.overflowCount.Add(1)
			client.mu.Unlock()
			return nil
		}
	}
	client.queue.PushBack(job)
	client.mu.Unlock()

	client.submittedCount.Add(1)
	return nil
}

// SelectNextJob asks the active policy for the next job to run. ok is
// false if no client currently has queued work.
func (s *Scheduler) SelectNextJob() (Job, bool) {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()
	if len(s.order) == 0 {
		return Job{}, false
	}

	s.policyMu.Lock()
	defer s.policyMu.Unlock()
	return s.policy.SelectNextJob(s.order, s.clients)
}

// RecordExecution accounts for a completed job's runtime. It is a silent
// no-op for an unknown client id.
func (s *Scheduler) RecordExecution(clientID string, duration time.Duration) {
	s.registryMu.RLock()
	client, ok := s.clients[clientID]
	s.registryMu.RUnlock()
	if !ok {
		return
	}

	client.executedCount.Add(1)
	client.totalExecutionTimeUs.Add(duration.Microseconds())
	s.totalProcessed.Add(1)
	s.policyMu.Lock()
	s.policy.OnJobExecuted(clientID, duration)
	s.policyMu.Unlock()
}

// ClientMetrics returns a snapshot of one client's counters.
func (s *Scheduler) ClientMetrics(clientID string) (ClientMetrics, error) {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return ClientMetrics{}, newError(ErrUnknownClient, clientID)
	}
	return snapshotClientMetrics(client), nil
}

// ClientSnapshot pairs a client id with its metrics, as returned by
// AllClientMetrics.
type ClientSnapshot struct {
	ID string
	ClientMetrics
}

// AllClientMetrics returns a snapshot of every registered client's
// counters, in registration order.
func (s *Scheduler) AllClientMetrics() []ClientSnapshot {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()

	snapshots := make([]ClientSnapshot, 0, len(s.order))
	for _, id := range s.order {
		snapshots = append(snapshots, ClientSnapshot{
			ID:            id,
			ClientMetrics: snapshotClientMetrics(s.clients[id]),
		})
	}
	return snapshots
}

// snapshotClientMetrics reads client's counters. Callers must hold
// s.registryMu for reading.
func snapshotClientMetrics(client *ClientState) ClientMetrics {
	executed := client.executedCount.Load()
	totalUs := client.totalExecutionTimeUs.Load()
	avg := 0.0
	if executed > 0 {
		avg = float64(totalUs) / float64(executed)
	}

	client.mu.Lock()
	depth := client.queueDepth()
	client.mu.Unlock()

	return ClientMetrics{
		Submitted:          client.submittedCount.Load(),
		Executed:           executed,
		AvgExecutionTimeUs: avg,
		QueueDepth:         depth,
		Weight:             client.Weight,
		OverflowCount:      client.overflowCount.Load(),
	}
}

// GlobalMetrics returns a scheduler-wide snapshot including Jain's
// fairness index over executed counts.
func (s *Scheduler) GlobalMetrics() GlobalMetrics {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()

	executed := make([]uint64, 0, len(s.clients))
	for _, client := range s.clients {
		executed = append(executed, client.executedCount.Load())
	}

	return GlobalMetrics{
		TotalProcessed:    s.totalProcessed.Load(),
		ActiveClients:     len(s.clients),
		JainFairnessIndex: jainFairnessIndex(executed),
	}
}

// TotalJobsProcessed returns the scheduler-wide count of executed jobs.
func (s *Scheduler) TotalJobsProcessed() uint64 {
	return s.totalProcessed.Load()
}

// HasPendingJobs reports whether any client has queued work.
func (s *Scheduler) HasPendingJobs() bool {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()

	for _, client := range s.clients {
		client.mu.Lock()
		depth := client.queueDepth()
		client.mu.Unlock()
		if depth > 0 {
			return true
		}
	}
	return false
}

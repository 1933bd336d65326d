// Package workerpool runs a fixed set of goroutines that pull jobs from a
// scheduler.Scheduler and execute them outside any scheduler lock,
// implementing the graceful drain-then-stop shutdown the scheduling core
// itself has no opinion about.
package workerpool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"quanta/internal/scheduler"
)

// pollInterval is how often Shutdown re-checks HasPendingJobs while
// draining. Short enough to keep shutdown latency low, long enough not to
// spin the CPU.
const pollInterval = time.Millisecond

// idlePoll bounds how long an idle worker sleeps before re-checking for
// work on its own, so liveness never depends on every submitter
// remembering to call NotifyWorkers.
const idlePoll = 2 * time.Millisecond

// Scheduler is the subset of *scheduler.Scheduler the pool depends on,
// narrowed for testability.
type Scheduler interface {
	SelectNextJob() (scheduler.Job, bool)
	RecordExecution(clientID string, duration time.Duration)
	HasPendingJobs() bool
}

// Pool runs WorkerCount goroutines against a Scheduler.
type Pool struct {
	scheduler Scheduler
	logger    *zap.Logger

	wg sync.WaitGroup

	mu       sync.Mutex
	cond     *sync.Cond
	running  bool
	draining bool

	workerCount  int
	shutdownOnce sync.Once
}

// New starts a pool of workerCount goroutines pulling from sched.
// workerCount must be >= 1.
func New(sched Scheduler, workerCount int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		scheduler:   sched,
		logger:      logger,
		running:     true,
		workerCount: workerCount,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.workerLoop(i)
	}
	return p
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker_id", id))

	for {
		job, ok := p.scheduler.SelectNextJob()
		if !ok {
			p.mu.Lock()
			draining := p.draining
			running := p.running
			p.mu.Unlock()

			if draining && !p.scheduler.HasPendingJobs() {
				return
			}
			if !running {
				return
			}

			// Wait for either a new-work/shutdown broadcast or the idle
			// poll timer, whichever comes first, then retry from the top.
			p.mu.Lock()
			if p.running && !p.draining {
				timer := time.AfterFunc(idlePoll, p.cond.Broadcast)
				p.cond.Wait()
				timer.Stop()
			}
			p.mu.Unlock()
			continue
		}

		p.runJob(log, job)
	}
}

// runJob executes one job's task outside any lock, recovering a panic so
// a misbehaving callable never takes down a worker goroutine. Execution
// time and completion are recorded regardless of whether the task panicked.
func (p *Pool) runJob(log *zap.Logger, job scheduler.Job) {
	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("job task panicked",
					zap.String("client_id", job.ClientID),
					zap.Uint64("job_id", job.JobID),
					zap.Any("panic", r))
			}
		}()
		if job.Task != nil {
			job.Task()
		}
	}()
	duration := time.Since(start)

	p.scheduler.RecordExecution(job.ClientID, duration)
	log.Debug("job executed",
		zap.String("client_id", job.ClientID),
		zap.Uint64("job_id", job.JobID),
		zap.Duration("duration", duration))
}

// Shutdown drains all pending work, then stops every worker goroutine.
// It blocks until every admitted job has run exactly once. Calling it more
// than once is safe; later callers simply wait for the first call's
// teardown to finish.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.draining = true
		p.mu.Unlock()
		p.cond.Broadcast()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for p.scheduler.HasPendingJobs() {
			<-ticker.C
			p.cond.Broadcast()
		}

		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		p.cond.Broadcast()

		p.wg.Wait()
		p.logger.Info("worker pool stopped", zap.Int("worker_count", p.workerCount))
	})
}

// IsRunning reports whether the pool is still accepting/executing work.
// It turns false once Shutdown has drained every queue and begun stopping
// the workers, before they have all returned.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// WorkerCount returns the fixed number of worker goroutines in the pool.
func (p *Pool) WorkerCount() int {
	return p.workerCount
}

// NotifyWorkers wakes any worker goroutines blocked waiting for new work.
// Called by submitters after Submit to reduce dispatch latency.
func (p *Pool) NotifyWorkers() {
	p.cond.Broadcast()
}

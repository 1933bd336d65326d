// quanta-loadgen drives an in-process scheduler with synthetic
// submissions across a configurable number of weighted clients, then
// reports Jain's fairness index and per-client throughput.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"quanta/internal/logging"
	"quanta/internal/scheduler"
	"quanta/internal/workerpool"
)

func main() {
	var (
		policyName  = flag.String("policy", "wrr", "Arbitration policy: wrr or drr")
		clientCount = flag.Int("clients", 4, "Number of synthetic clients")
		workers     = flag.Int("workers", 4, "Worker pool size")
		duration    = flag.Duration("duration", 5*time.Second, "How long to submit jobs for")
	)
	flag.Parse()

	logger := logging.Component("loadgen")

	var policy scheduler.Policy
	if *policyName == "drr" {
		policy = scheduler.NewDRRPolicy(scheduler.DefaultBaseQuantum)
	} else {
		policy = scheduler.NewWRRPolicy()
	}
	sched := scheduler.NewWithPolicy(policy)

	for i := 0; i < *clientCount; i++ {
		id := fmt.Sprintf("client-%d", i)
		weight := i + 1 // asymmetric weights make fairness differences visible
		if err := sched.RegisterClient(id, scheduler.WithWeight(weight)); err != nil {
			logger.Fatal("failed to register client", zap.String("id", id), zap.Error(err))
		}
	}

	pool := workerpool.New(sched, *workers, logger)

	stop := time.Now().Add(*duration)
	var wg sync.WaitGroup
	for i := 0; i < *clientCount; i++ {
		id := fmt.Sprintf("client-%d", i)
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			for time.Now().Before(stop) {
				cost := uint32(10 + rand.Intn(90))
				err := sched.Submit(clientID, func() {
					time.Sleep(time.Millisecond)
				}, scheduler.WithCostHint(cost))
				if err != nil {
					logger.Warn("submit failed", zap.String("client_id", clientID), zap.Error(err))
				}
			}
		}(id)
	}
	wg.Wait()

	pool.Shutdown()

	global := sched.GlobalMetrics()
	logger.Info("load generation complete",
		zap.Uint64("total_processed", global.TotalProcessed),
		zap.Float64("jain_fairness_index", global.JainFairnessIndex))

	for i := 0; i < *clientCount; i++ {
		id := fmt.Sprintf("client-%d", i)
		m, err := sched.ClientMetrics(id)
		if err != nil {
			continue
		}
		logger.Info("client summary",
			zap.String("client_id", id),
			zap.Int("weight", m.Weight),
			zap.Uint64("executed", m.Executed),
			zap.Float64("avg_execution_time_us", m.AvgExecutionTimeUs))
	}
}

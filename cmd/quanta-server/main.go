package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quanta/internal/api"
	"quanta/internal/config"
	"quanta/internal/ingest"
	"quanta/internal/logging"
	"quanta/internal/scheduler"
	"quanta/internal/workerpool"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/quanta.yaml", "Configuration file path")
		development = flag.Bool("dev", false, "Enable development mode logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		cfg = config.Default()
	}
	cfg.Logging.Development = cfg.Logging.Development || *development

	if err := logging.Init(cfg.Logging); err != nil {
		panic(err)
	}
	defer logging.Sync()

	logger := logging.Component("quanta-server")
	logger.Info("starting quanta scheduler",
		zap.String("config_file", *configFile),
		zap.String("policy", cfg.Scheduler.Policy),
		zap.Int("worker_count", cfg.Scheduler.WorkerCount))

	sched := newScheduler(cfg.Scheduler)
	for _, c := range cfg.Scheduler.Clients {
		opts := clientOptions(c)
		if err := sched.RegisterClient(c.ID, opts...); err != nil {
			logger.Fatal("failed to register configured client", zap.String("id", c.ID), zap.Error(err))
		}
	}

	pool := workerpool.New(sched, cfg.Scheduler.WorkerCount, logging.Component("workerpool"))

	adminServer := api.New(sched, logging.Component("api"))
	if err := adminServer.Start(cfg.HTTP.Address); err != nil {
		logger.Fatal("failed to start admin server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var consumer *ingest.Consumer
	if cfg.Kafka != nil {
		consumer = ingest.NewConsumer(cfg.Kafka, sched, logging.Component("ingest"), nil)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("received shutdown signal")
	cancel()
	if consumer != nil {
		_ = consumer.Close()
	}
	pool.Shutdown()
	if err := adminServer.Stop(); err != nil {
		logger.Error("error stopping admin server", zap.Error(err))
	}

	logger.Info("quanta scheduler exited gracefully")
}

func newScheduler(cfg config.SchedulerConfig) *scheduler.Scheduler {
	switch cfg.Policy {
	case "drr":
		return scheduler.NewWithPolicy(scheduler.NewDRRPolicy(cfg.BaseQuantum))
	default:
		return scheduler.NewWithPolicy(scheduler.NewWRRPolicy())
	}
}

func clientOptions(c config.ClientConfig) []scheduler.ClientOption {
	opts := []scheduler.ClientOption{}
	if c.Weight > 0 {
		opts = append(opts, scheduler.WithWeight(c.Weight))
	}
	if c.MaxQueueDepth > 0 {
		opts = append(opts, scheduler.WithMaxQueueDepth(c.MaxQueueDepth))
	}
	switch c.OverflowStrategy {
	case "block":
		opts = append(opts, scheduler.WithOverflowStrategy(scheduler.Block))
	case "drop_oldest":
		opts = append(opts, scheduler.WithOverflowStrategy(scheduler.DropOldest))
	case "drop_newest":
		opts = append(opts, scheduler.WithOverflowStrategy(scheduler.DropNewest))
	}
	return opts
}

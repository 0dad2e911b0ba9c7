package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailguard/internal/app"
	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("MAILGUARD_CONFIG"), "path to config.yaml")
	runOnce := flag.String("run", "", "run a single job by name and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	app.ConfigureLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	jobs := &worker.Jobs{
		Guard:   a.Guard,
		Domains: a.Domains,
		Verification: worker.NewVerificationJob(a.Leads, a.Verifier, a.Leads,
			cfg.Verification.WorkerBatchSize,
			time.Duration(cfg.Verification.ReverifyAfterDays)*24*time.Hour),
	}
	if a.Archive != nil {
		jobs.Archive = a.Archive
	}

	sched := worker.NewScheduler(a.JobLock, cfg.Schedules.LockTTL())
	if err := jobs.Register(sched, cfg.Schedules); err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	if *runOnce != "" {
		ran, err := sched.RunNow(ctx, *runOnce)
		if err != nil {
			log.Fatalf("Job %s failed: %v", *runOnce, err)
		}
		logger.Info("job run", "job", *runOnce, "ran", ran)
		return
	}

	sched.Start()
	logger.Info("worker started", "jobs", len(sched.Jobs()), "redis", a.Redis != nil)

	<-ctx.Done()
	logger.Info("stopping worker")
	sched.Stop()
}

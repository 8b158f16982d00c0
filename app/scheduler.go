package app

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the daily scan on a cron schedule in Taipei wall time.
// A scan that is still running when the next trigger fires wins; the trigger
// is skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	running atomic.Bool
}

// NewScheduler creates a scheduler for the given cron spec.
func NewScheduler(spec string, loc *time.Location, runner *Runner) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) trigger() {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("⏳ Previous scan still running, skipping this trigger.")
		return
	}
	defer s.running.Store(false)

	if err := s.runner.Run(context.Background()); err != nil {
		log.Printf("❌ Scheduled scan failed: %v", err)
	}
}

// Start begins firing scheduled scans.
func (s *Scheduler) Start() {
	log.Println("⏰ Scheduler started.")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running scan's cron goroutine.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏰ Scheduler stopped.")
}

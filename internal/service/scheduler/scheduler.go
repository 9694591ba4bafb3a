package scheduler

import (
	"context"
	"fmt"
	"strings"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/usecase"
	applogger "KronosAlign/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RefreshPlan is the set of tickers refreshed on every tick.
type RefreshPlan struct {
	Spec     string
	Tickers  []string
	Interval string
	Period   string
}

// Scheduler enqueues market data refresh jobs on a cron schedule.
type Scheduler struct {
	cron  *cron.Cron
	queue domrepo.JobQueue
	plan  RefreshPlan
	l     *applogger.Logger
}

// New parses the plan's five-field cron spec. Ticks that overlap a running
// tick are skipped.
func New(q domrepo.JobQueue, plan RefreshPlan, l *applogger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		queue: q,
		plan:  plan,
		l:     l,
	}
	if _, err := s.cron.AddFunc(plan.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("register refresh %q: %w", plan.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started",
		applogger.String("spec", s.plan.Spec),
		applogger.Strings("tickers", s.plan.Tickers),
	)
}

// Stop stops the cron loop and waits for a running tick.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow enqueues one round of refresh jobs and returns how many were queued.
func (s *Scheduler) RunNow(ctx context.Context) int {
	queued := 0
	for _, t := range s.plan.Tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		req := models.FetchDataRequest{Ticker: t, Interval: s.plan.Interval, Period: s.plan.Period}
		if err := s.queue.Enqueue(ctx, usecase.RefreshJobType, req); err != nil {
			s.l.Error("enqueue refresh failed", applogger.String("ticker", t), applogger.Error(err))
			continue
		}
		queued++
	}
	return queued
}

func (s *Scheduler) tick() {
	n := s.RunNow(context.Background())
	s.l.Info("refresh jobs queued", applogger.Int("count", n), applogger.String("interval", s.plan.Interval))
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SectorPulse/internal/model"
	"SectorPulse/internal/notifier"
	"SectorPulse/internal/pipeline"
)

// Runner executes analysis runs.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
	Latest() (*model.Snapshot, string, bool)
}

// Sender reports failed runs. It may be nil.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks and chat commands.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Sender Sender
	Ctx    context.Context
	Logger zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: runner,
		Sender: sender,
		Ctx:    ctx,
		Logger: log,
	}
}

// RegisterAll registers the daily analysis task.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	s.Logger.Info().Msg("running daily analysis")
	if _, err := s.Runner.Run(s.Ctx); err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.Logger.Warn().Msg("skipping daily analysis, previous run still active")
			return
		}
		s.Logger.Error().Err(err).Msg("daily analysis failed")
		s.trySend(fmt.Sprintf("❌ SectorPulse run failed: %s", html.EscapeString(err.Error())))
	}
}

const helpText = "Commands:\n• /snapshot  latest summary\n• /hot  top sectors\n• /run  start an analysis now"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	// "/hot@SectorPulseBot" in group chats
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), "@")
	switch cmd {
	case "/snapshot":
		snap, _, ok := s.Runner.Latest()
		if !ok {
			return "No snapshot yet."
		}
		return notifier.FormatSnapshot(snap)
	case "/hot":
		snap, _, ok := s.Runner.Latest()
		if !ok {
			return "No snapshot yet."
		}
		return notifier.FormatHot(snap)
	case "/run":
		// the run sends its own summary when it completes
		go s.dailyTask()
		return "Analysis started."
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}

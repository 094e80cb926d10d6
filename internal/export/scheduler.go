package export

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "recurcal/internal/log"
)

// Scheduler runs a Job on a standard 5-field cron schedule.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      *Job
}

// NewScheduler validates spec and returns a Scheduler for job.
func NewScheduler(spec string, job *Job) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("export schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, schedule: schedule, job: job}, nil
}

// Run starts the cron loop and blocks until ctx is done, then waits for a
// running export to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		// Failures are already logged per event.
		_, _ = s.job.Run(ctx)
	}))

	c.Start()
	appLog.Info("export scheduler started", "schedule", s.spec, "dir", s.job.dir)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("export scheduler stopped")
	return nil
}

// cronLogger routes cron's own logging to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

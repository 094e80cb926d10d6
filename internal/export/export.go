package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"

	"recurcal/internal/config"
	"recurcal/internal/ics"
	appLog "recurcal/internal/log"
	"recurcal/internal/model"
)

// Job writes one <id>.ics file per event into a directory. Concurrent
// calls to Run are serialised.
type Job struct {
	dir    string
	events []model.Event
	now    func() time.Time

	mu sync.Mutex
}

// NewJob returns a Job exporting events into dir.
func NewJob(dir string, events []model.Event) *Job {
	return &Job{
		dir:    dir,
		events: events,
		now:    time.Now,
	}
}

// Path returns the file an event is exported to.
func (j *Job) Path(id string) string {
	return filepath.Join(j.dir, id+".ics")
}

// Run exports every event. A failing event does not stop the others;
// all failures are returned together. Cancellation is checked between
// events.
func (j *Job) Run(ctx context.Context) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := j.now()
	stamp := start.UTC()
	written := make([]string, 0, len(j.events))
	var errs error

	for _, ev := range j.events {
		if err := ctx.Err(); err != nil {
			return written, multierr.Append(errs, err)
		}

		path := j.Path(ev.ID)
		body, err := ics.Export([]model.Event{ev}, ics.ExportOptions{Stamp: stamp})
		if err == nil {
			err = config.WriteFileAtomic(path, body)
		}
		if err != nil {
			appLog.Error("export failed", err, "id", ev.ID, "path", path)
			errs = multierr.Append(errs, fmt.Errorf("export %s: %w", ev.ID, err))
			continue
		}
		written = append(written, path)
	}

	appLog.Info("export completed",
		"dir", j.dir,
		"written", len(written),
		"failed", len(multierr.Errors(errs)),
		"elapsed", time.Since(start).String(),
	)
	return written, errs
}

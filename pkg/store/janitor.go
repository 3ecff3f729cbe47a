package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/armorclaw/raven/pkg/logger"
)

// DefaultJanitorSchedule runs cleanup once a day at 03:00.
const DefaultJanitorSchedule = "0 3 * * *"

// Janitor periodically removes expired resolved events
type Janitor struct {
	cron  *cron.Cron
	store *Store
	log   *logger.Logger
}

// StartJanitor schedules Cleanup on a cron spec. Standard five-field specs
// and descriptors such as "@every 1h" are accepted.
func (s *Store) StartJanitor(spec string, log *logger.Logger) (*Janitor, error) {
	if spec == "" {
		spec = DefaultJanitorSchedule
	}
	if log == nil {
		log = logger.Global()
	}

	j := &Janitor{
		cron:  cron.New(),
		store: s,
		log:   log.WithComponent("janitor"),
	}
	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	j.cron.Start()
	return j, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.store.Cleanup(ctx)
	if err != nil {
		j.log.Error("store cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		j.log.Info("store cleanup completed", "removed", removed)
	}
}

// Stop halts the schedule and waits for a running cleanup to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

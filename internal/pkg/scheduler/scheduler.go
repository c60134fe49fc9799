package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Logger adapts the global zerolog logger to cron.Logger.
type Logger struct{}

func (Logger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("[CRON] " + msg)
}

func (Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("[CRON] " + msg)
}

// New returns a cron runner in UTC that recovers panicking jobs and never
// overlaps two runs of the same entry.
func New() *cron.Cron {
	logger := Logger{}
	return cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

// Every builds an "@every" spec. Sub-second intervals are rounded up to one second.
func Every(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return fmt.Sprintf("@every %s", d.Round(time.Second))
}

// Stop stops c and waits for running jobs to finish.
func Stop(c *cron.Cron) {
	ctx := c.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}

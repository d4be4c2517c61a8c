// Package scheduler runs the engine's periodic jobs on robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run of a periodic job.
const jobTimeout = 2 * time.Minute

// SigningExpirer expires signing requests past their deadline.
type SigningExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Scheduler owns the cron runner. Overlapping runs of the same job are
// skipped and panics are recovered and logged.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Entry
}

// New creates a stopped Scheduler.
func New(log *logrus.Entry) *Scheduler {
	l := cronLogger{log}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		log:  log,
	}
}

// AddSigningExpiry registers the signing expiry sweep under spec, which
// accepts standard five-field expressions and descriptors like "@every 15m".
func (s *Scheduler) AddSigningExpiry(spec string, expirer SigningExpirer) error {
	if _, err := s.cron.AddFunc(spec, signingExpiryJob(expirer, s.log)); err != nil {
		return fmt.Errorf("invalid signing expiry schedule %q: %w", spec, err)
	}
	s.log.WithField("spec", spec).Info("signing expiry sweep scheduled")
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

func signingExpiryJob(expirer SigningExpirer, log *logrus.Entry) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := expirer.ExpireStale(ctx)
		if err != nil {
			log.WithError(err).Error("signing expiry sweep failed")
			return
		}
		if n > 0 {
			log.WithField("expired", n).Info("expired stale signing requests")
		}
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

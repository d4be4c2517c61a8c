package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return f.n, f.err
}

func newTestLogger() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

// TestSigningExpiryJob verifies one sweep run.
//
// WHY: The sweep runs unattended; its outcome is only visible through logs,
// so failures must be logged at error and never panic the scheduler.
func TestSigningExpiryJob(t *testing.T) {
	t.Run("logs how many requests expired", func(t *testing.T) {
		log, hook := newTestLogger()
		exp := &fakeExpirer{n: 3}

		signingExpiryJob(exp, log)()

		assert.Equal(t, int32(1), exp.calls.Load())
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, int64(3), hook.LastEntry().Data["expired"])
	})

	t.Run("stays quiet when nothing expired", func(t *testing.T) {
		log, hook := newTestLogger()

		signingExpiryJob(&fakeExpirer{}, log)()

		assert.Empty(t, hook.AllEntries())
	})

	t.Run("logs failures at error", func(t *testing.T) {
		log, hook := newTestLogger()

		signingExpiryJob(&fakeExpirer{err: errors.New("db locked")}, log)()

		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})
}

func TestScheduler(t *testing.T) {
	t.Run("rejects an invalid spec", func(t *testing.T) {
		log, _ := newTestLogger()

		err := New(log).AddSigningExpiry("every now and then", &fakeExpirer{})

		assert.Error(t, err)
	})

	t.Run("runs the sweep on schedule", func(t *testing.T) {
		log, _ := newTestLogger()
		exp := &fakeExpirer{}
		s := New(log)
		require.NoError(t, s.AddSigningExpiry("@every 1s", exp))

		s.Start()
		assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestHousekeepingSweepsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sw := &countingSweeper{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(sw, logger, 10*time.Millisecond)

	hk.Start()
	require.Eventually(t, func() bool { return sw.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	hk.Stop()

	n := sw.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, n, sw.calls.Load(), "no sweeps after Stop")
}

func TestHousekeepingSurvivesErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sw := &countingSweeper{err: errors.New("db down")}
	hk := NewHousekeepingService(sw, slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Millisecond)

	hk.Start()
	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	hk.Stop()
}

func TestHousekeepingDefaultInterval(t *testing.T) {
	hk := NewHousekeepingService(&countingSweeper{}, nil, 0)
	require.Equal(t, time.Hour, hk.Interval)
}

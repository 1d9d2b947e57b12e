package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/iamcore/pkg/idx"
)

// Sweeper removes expired refresh ledger entries. The memory and store
// ledgers implement it; redis expires keys itself.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// HousekeepingService periodically sweeps expired ledger entries so the
// refresh_tokens table does not grow without bound.
type HousekeepingService struct {
	Sweeper  Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HousekeepingService{
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker. It sweeps once immediately, then every Interval.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-flight sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log := s.Logger.With("run_id", idx.New().String())
	n, err := s.Sweeper.Sweep(ctx)
	if err != nil {
		log.Error("failed to sweep expired refresh tokens", "error", err)
		return
	}
	housekeepingSwept.Add(float64(n))
	log.Debug("swept expired refresh tokens", "deleted", n)
}

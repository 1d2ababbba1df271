package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically removes Signal records whose disconnect
// never arrived.
type HousekeepingService struct {
	Signals  *SignalService
	Logger   *slog.Logger
	Interval time.Duration
	MaxAge   time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour, a non-positive maxAge to 2 hours.
func NewHousekeepingService(signals *SignalService, logger *slog.Logger, interval, maxAge time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Signals:  signals,
		Logger:   logger,
		Interval: interval,
		MaxAge:   maxAge,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "max_age", s.MaxAge)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one cleanup pass and returns the number of records removed.
func (s *HousekeepingService) RunOnce(ctx context.Context) int64 {
	s.Logger.Info("starting housekeeping cleanup")

	n, err := s.Signals.Prune(ctx, s.MaxAge)
	if err != nil {
		s.Logger.Error("failed to prune stale signals", "error", err)
		return 0
	}

	s.Logger.Info("housekeeping cleanup completed", "signals_removed", n)
	return n
}

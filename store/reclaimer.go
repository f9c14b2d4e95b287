package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/NunoTeixeiraMota/image-refac/internal/metrics"
)

var (
	ErrAlreadyStarted = errors.New("reclaimer already started")
	ErrNotStarted     = errors.New("reclaimer not started")
)

// Reclaimer periodically removes session directories whose modification
// time fell behind the ttl. Uploads and conversions age independently.
type Reclaimer struct {
	store    *Store
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReclaimer(store *Store, interval, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Reclaimer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reclaimer{
		store:    store,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
	}
}

// Start launches the background sweep loop.
func (r *Reclaimer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.started = true
	go r.run(r.stopCh, r.doneCh)
	r.logger.Info("session reclaimer started", "interval", r.interval, "ttl", r.ttl)
	return nil
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reclaimer) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ErrNotStarted
	}
	close(r.stopCh)
	done := r.doneCh
	r.started = false
	r.mu.Unlock()

	<-done
	r.logger.Info("session reclaimer stopped")
	return nil
}

func (r *Reclaimer) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.SweepOnce()
		}
	}
}

// SweepOnce removes every stale session directory and reports how many
// were removed. Failures are logged and skipped so one undeletable
// directory cannot stall the sweep.
func (r *Reclaimer) SweepOnce() int {
	cutoff := time.Now().Add(-r.ttl)
	removed := 0
	for _, parent := range []string{
		filepath.Join(r.store.Root(), uploadsDirName),
		filepath.Join(r.store.Root(), conversionsDirName),
	} {
		entries, err := os.ReadDir(parent)
		if err != nil {
			r.logger.Warn("reclaimer cannot list", "dir", parent, "error", err)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			dir := filepath.Join(parent, e.Name())
			if err := os.RemoveAll(dir); err != nil {
				r.logger.Warn("reclaim failed", "dir", dir, "error", err)
				continue
			}
			removed++
			r.logger.Info("session dir reclaimed", "dir", dir, "age", time.Since(info.ModTime()).Round(time.Second))
		}
	}
	if removed > 0 {
		r.metrics.AddReclaimed(removed)
	}
	return removed
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Watcher turns writes made by other processes on the same SQLite file into
// hub changes. It polls PRAGMA data_version on a dedicated connection; the
// value moves whenever another connection commits.
type Watcher struct {
	store    *SQLite
	interval time.Duration
	logger   *slog.Logger
}

func NewWatcher(s *SQLite, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{store: s, interval: interval, logger: slog.Default()}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.store.db.Stats().MaxOpenConnections == 1 {
		// holding the only connection would starve every other query
		w.logger.Info("watch: disabled for single-connection database")
		return nil
	}

	conn, err := w.store.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("watch: reserve connection: %w", err)
	}
	defer conn.Close()

	var last int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&last); err != nil {
		return fmt.Errorf("watch: initial data_version: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watch: started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch: stopped")
			return nil
		case <-ticker.C:
			var ver int64
			if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&ver); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("watch: data_version poll failed", "err", err)
				continue
			}
			if ver == last {
				continue
			}
			w.logger.Debug("watch: change detected", "old_version", last, "new_version", ver)
			last = ver
			w.refresh(ctx)
		}
	}
}

// refresh re-reads every subscribed code and publishes rows newer than the
// last version the hub has seen.
func (w *Watcher) refresh(ctx context.Context) {
	hub := w.store.hub
	for _, code := range hub.Codes() {
		session, err := w.store.Get(ctx, code)
		if err != nil {
			w.logger.Debug("watch: reload skipped", "session_code", code, "err", err)
			continue
		}
		if session.Version > hub.LastVersion(code) {
			hub.Publish(Change{Session: *session, ResultIncluded: true})
		}
	}
}

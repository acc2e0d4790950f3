// Package services – EngagementRecorder
//
// View events are best-effort analytics: recording one must never slow
// down or fail the read path that triggered it. RecordView therefore
// dispatches the insert on a goroutine with its own timeout and
// swallows failures after logging them. Flush exists so shutdown and
// tests can wait for in-flight writes.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/repo"
)

// DefaultViewEventTimeout bounds the detached insert for one view event.
const DefaultViewEventTimeout = 2 * time.Second

// EngagementRecorder persists view events off the request path.
type EngagementRecorder struct {
	DB      *gorm.DB
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewEngagementRecorder wires a recorder around the storage handle.
func NewEngagementRecorder(db *gorm.DB, timeout time.Duration) *EngagementRecorder {
	if timeout <= 0 {
		timeout = DefaultViewEventTimeout
	}
	return &EngagementRecorder{DB: db, Timeout: timeout}
}

// RecordView persists a view event asynchronously. It returns
// immediately; the insert runs detached from the request context so a
// client disconnect cannot cancel it. Failures are logged and counted,
// never surfaced to the caller.
func (r *EngagementRecorder) RecordView(specialID string, who domain.Claimant) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
		defer cancel()

		if _, err := repo.CreateViewEvent(ctx, r.DB, specialID, who); err != nil {
			viewEvents.WithLabelValues("error").Inc()
			log.Warn().
				Err(err).
				Str("special_id", specialID).
				Msg("failed to record view event")
			return
		}
		viewEvents.WithLabelValues("ok").Inc()
	}()
}

// Flush blocks until every dispatched view event has finished, or ctx
// expires. Used on shutdown and in tests.
func (r *EngagementRecorder) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

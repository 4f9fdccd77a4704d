// internal/domain/notification/sweeper.go
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically purges expired notifications
type Sweeper struct {
	dispatcher *Dispatcher
	interval   time.Duration
	log        logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper running every interval
func NewSweeper(dispatcher *Dispatcher, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		dispatcher: dispatcher,
		interval:   interval,
		log:        log,
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := s.dispatcher.PurgeExpired(ctx, now); err != nil {
					s.log.WithError(err).Error("Notification sweep failed")
				}
			}
		}
	}()
	s.log.WithField("interval", s.interval.String()).Info("Notification sweeper started")
}

// Stop ends the sweep loop and waits for an in-flight sweep
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

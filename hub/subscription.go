package hub

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/pkg/buffer"
)

var (
	// ErrLagged matches any *LaggedError via errors.Is
	ErrLagged = stderrors.New("subscriber lagged")

	// ErrSubscriptionClosed is returned by Recv after Close
	ErrSubscriptionClosed = stderrors.New("subscription closed")

	// ErrHubClosed is returned by Recv once the hub is closed and drained
	ErrHubClosed = errors.ErrHubClosed
)

// LaggedError reports events a subscriber missed because it fell more than
// the hub capacity behind. The next Recv continues with the oldest retained event.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d events skipped", e.Skipped)
}

// Is makes errors.Is(err, ErrLagged) true for every *LaggedError
func (e *LaggedError) Is(target error) bool {
	return target == ErrLagged
}

// Subscription is one independent reader of the hub.
// Recv must not be called concurrently on the same subscription.
type Subscription struct {
	id   string
	hub  *Hub
	next uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// ID returns the unique subscription id
func (s *Subscription) ID() string {
	return s.id
}

// Recv returns the next event in publish order. It blocks until an event is
// available, ctx is done, the subscription is closed or the hub is closed.
func (s *Subscription) Recv(ctx context.Context) (message.Event, error) {
	closed := s.closed
	for {
		select {
		case <-closed:
			return message.Event{}, ErrSubscriptionClosed
		default:
		}

		// take the wake-up channel before reading so a publish in between is not missed
		notify := s.hub.wait()

		ev, oldest, status := s.hub.ring.Read(s.next)
		switch status {
		case buffer.ReadOK:
			s.next++
			return ev, nil
		case buffer.ReadLagged:
			skipped := oldest - s.next
			s.next = oldest
			s.hub.metrics.recordLag(skipped)
			s.hub.logger.Debug("Subscriber lagged",
				"subscription", s.id, "skipped", skipped)
			return message.Event{}, &LaggedError{Skipped: skipped}
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return message.Event{}, ctx.Err()
		case <-closed:
			return message.Event{}, ErrSubscriptionClosed
		case <-s.hub.done:
			// deliver anything published before close first
			if _, _, st := s.hub.ring.Read(s.next); st != buffer.ReadPending {
				continue
			}
			return message.Event{}, ErrHubClosed
		}
	}
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.hub.unsubscribe()
	})
}

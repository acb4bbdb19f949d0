package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(n uint32) message.Event {
	return message.NewPassingEvent(message.Passing{PassingNumber: n, Transponder: "TR001"})
}

func newHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func recv(t *testing.T, sub *Subscription) (message.Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sub.Recv(ctx)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := newHub(t)
	assert.Equal(t, 0, h.Publish(passing(1)))
	assert.Equal(t, DefaultCapacity, h.Capacity())
}

func TestHub_PublishReturnsDeliveredCount(t *testing.T) {
	h := newHub(t)
	a := h.Subscribe()
	b := h.Subscribe()
	defer a.Close()

	assert.Equal(t, 2, h.Publish(passing(1)))

	b.Close()
	b.Close() // idempotent
	assert.Equal(t, 1, h.Publish(passing(2)))
	assert.Equal(t, 1, h.SubscriberCount())
}

func TestHub_SubscriberSeesOnlyFutureEvents(t *testing.T) {
	h := newHub(t)
	early := h.Subscribe()
	defer early.Close()

	h.Publish(passing(1))

	late := h.Subscribe()
	defer late.Close()
	h.Publish(passing(2))

	ev, err := recv(t, early)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ev.Passing.PassingNumber)

	ev, err = recv(t, late)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ev.Passing.PassingNumber)
}

func TestHub_EverySubscriberGetsEveryEventInOrder(t *testing.T) {
	h := newHub(t)
	const subs, events = 3, 50

	var wg sync.WaitGroup
	results := make([][]uint32, subs)
	for i := 0; i < subs; i++ {
		sub := h.Subscribe()
		wg.Add(1)
		go func(i int, sub *Subscription) {
			defer wg.Done()
			defer sub.Close()
			for len(results[i]) < events {
				ev, err := recv(t, sub)
				if !assert.NoError(t, err) {
					return
				}
				results[i] = append(results[i], ev.Passing.PassingNumber)
			}
		}(i, sub)
	}

	for n := uint32(0); n < events; n++ {
		assert.Equal(t, subs, h.Publish(passing(n)))
	}
	wg.Wait()

	for i := 0; i < subs; i++ {
		require.Len(t, results[i], events)
		for n := 0; n < events; n++ {
			assert.Equal(t, uint32(n), results[i][n])
		}
	}
}

func TestHub_LaggedSubscriberResumesAtOldest(t *testing.T) {
	h := newHub(t, WithCapacity(4))
	sub := h.Subscribe()
	defer sub.Close()

	for n := uint32(0); n < 10; n++ {
		h.Publish(passing(n))
	}

	_, err := recv(t, sub)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLagged))

	var lagged *LaggedError
	require.True(t, errors.As(err, &lagged))
	assert.Equal(t, uint64(6), lagged.Skipped)

	// the retained window follows without duplicates
	for n := uint32(6); n < 10; n++ {
		ev, err := recv(t, sub)
		require.NoError(t, err)
		assert.Equal(t, n, ev.Passing.PassingNumber)
	}
}

func TestHub_SlowSubscriberDoesNotAffectOthers(t *testing.T) {
	h := newHub(t, WithCapacity(2))
	slow := h.Subscribe()
	fast := h.Subscribe()
	defer slow.Close()
	defer fast.Close()

	for n := uint32(0); n < 5; n++ {
		assert.Equal(t, 2, h.Publish(passing(n)))
		ev, err := recv(t, fast)
		require.NoError(t, err)
		assert.Equal(t, n, ev.Passing.PassingNumber)
	}

	_, err := recv(t, slow)
	assert.ErrorIs(t, err, ErrLagged)
}

func TestHub_RecvHonoursContext(t *testing.T) {
	h := newHub(t)
	sub := h.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_RecvWakesOnPublish(t *testing.T) {
	h := newHub(t)
	sub := h.Subscribe()
	defer sub.Close()

	got := make(chan message.Event, 1)
	go func() {
		ev, err := recv(t, sub)
		if err == nil {
			got <- ev
		}
	}()

	time.Sleep(10 * time.Millisecond)
	h.Publish(message.Connected())

	select {
	case ev := <-got:
		assert.True(t, ev.IsStatus())
		assert.Equal(t, message.StatusConnected, ev.Status.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not woken by publish")
	}
}

func TestHub_CloseDrainsThenFails(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	sub := h.Subscribe()

	h.Publish(passing(7))
	h.Close()
	assert.Equal(t, 0, h.Publish(passing(8)))

	ev, err := recv(t, sub)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ev.Passing.PassingNumber)

	_, err = recv(t, sub)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestSubscription_RecvAfterClose(t *testing.T) {
	h := newHub(t)
	sub := h.Subscribe()
	assert.NotEmpty(t, sub.ID())
	sub.Close()

	_, err := recv(t, sub)
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
	assert.Equal(t, 0, h.SubscriberCount())
}

func TestHub_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	h := newHub(t, WithMetrics(registry), WithCapacity(1))

	h.Publish(passing(1))
	sub := h.Subscribe()
	defer sub.Close()
	h.Publish(passing(2))
	h.Publish(passing(3))

	_, err := recv(t, sub)
	require.ErrorIs(t, err, ErrLagged)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.dropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.delivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.lagged))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.published.WithLabelValues("passing")))
}

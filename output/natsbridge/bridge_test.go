package natsbridge

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/gilliangoud/RRCLiveLaps/pkg/retry"
	"github.com/gilliangoud/RRCLiveLaps/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *retry.Config {
	return &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func startBridge(t *testing.T, b *Bridge, h *hub.Hub) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, func() bool { return h.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	return cancel, done
}

func TestBridge_ForwardsEventsBySubject(t *testing.T) {
	h, err := hub.New()
	require.NoError(t, err)
	pub := testutil.NewMockPublisher()
	b := New(Deps{Hub: h, Publisher: pub, SubjectPrefix: "race."})

	cancel, done := startBridge(t, b, h)

	assert.Equal(t, 1, h.Publish(message.Connected()))
	assert.Equal(t, 1, h.Publish(message.NewPassingEvent(testutil.SamplePassing(42, "TR001"))))

	msgs := testutil.WaitForMessages(t, pub, 2, time.Second)
	assert.Equal(t, "race.status", msgs[0].Subject)
	assert.JSONEq(t, `{"event":"connected"}`, string(msgs[0].Data))
	assert.Equal(t, "race.passing", msgs[1].Subject)
	assert.Contains(t, string(msgs[1].Data), `"transponder":"TR001"`)

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 0, h.SubscriberCount())
	assert.Equal(t, int64(2), b.flow.Messages())
}

func TestBridge_RetriesTransientFailures(t *testing.T) {
	h, err := hub.New()
	require.NoError(t, err)
	pub := testutil.NewMockPublisher()
	pub.FailNext(2, errors.WrapTransient(stderrors.New("broker busy"), "test", "Publish", "publish"))
	b := New(Deps{Hub: h, Publisher: pub, Retry: fastRetry()})

	cancel, done := startBridge(t, b, h)
	defer func() { cancel(); <-done }()

	h.Publish(message.Disconnected())

	msgs := testutil.WaitForMessages(t, pub, 1, time.Second)
	assert.Equal(t, 3, pub.Calls())
	assert.Equal(t, "timing.status", msgs[0].Subject)
}

func TestBridge_DropsAfterNonTransientFailure(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	h, err := hub.New()
	require.NoError(t, err)
	pub := testutil.NewMockPublisher()
	pub.FailNext(1, errors.WrapInvalid(stderrors.New("bad subject"), "test", "Publish", "publish"))
	b := New(Deps{Hub: h, Publisher: pub, Retry: fastRetry(), MetricsRegistry: reg})

	cancel, done := startBridge(t, b, h)
	defer func() { cancel(); <-done }()

	h.Publish(message.Connected())
	h.Publish(message.Disconnected())

	msgs := testutil.WaitForMessages(t, pub, 1, time.Second)
	assert.Equal(t, 2, pub.Calls())
	assert.JSONEq(t, `{"event":"disconnected"}`, string(msgs[0].Data))
	assert.Equal(t, float64(1), promtest.ToFloat64(b.metrics.failedTotal.WithLabelValues("status")))
	assert.Equal(t, int64(1), b.flow.Errors())
}

func TestBridge_StopsWhenHubCloses(t *testing.T) {
	h, err := hub.New()
	require.NoError(t, err)
	b := New(Deps{Hub: h, Publisher: testutil.NewMockPublisher()})

	_, done := startBridge(t, b, h)
	h.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop after hub close")
	}
}

func TestBridge_RunValidation(t *testing.T) {
	err := New(Deps{}).Run(context.Background())
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	h, err := hub.New()
	require.NoError(t, err)
	b := New(Deps{Hub: h, Publisher: testutil.NewMockPublisher()})
	cancel, done := startBridge(t, b, h)
	defer func() { cancel(); <-done }()

	err = b.Run(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
}

func TestBridge_Discoverable(t *testing.T) {
	h, err := hub.New()
	require.NoError(t, err)
	b := New(Deps{Hub: h, Publisher: testutil.NewMockPublisher()})

	meta := b.Meta()
	assert.Equal(t, "nats-bridge", meta.Name)
	assert.Equal(t, "output", meta.Type)
	assert.False(t, b.Health().Healthy)
	assert.Equal(t, "timing.passing", b.Subject(message.NewPassingEvent(testutil.SamplePassing(42, "TR001"))))

	cancel, done := startBridge(t, b, h)
	assert.True(t, b.Health().Healthy)
	cancel()
	<-done
	assert.Equal(t, "stopped", b.Health().State)
}

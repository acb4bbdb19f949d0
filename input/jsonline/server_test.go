package jsonline

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	hub      *hub.Hub
	sub      *hub.Subscription
	tracker  *connstate.Tracker
	registry *metric.MetricsRegistry
	server   *Server
	cancel   context.CancelFunc
	result   chan error
}

func startServer(t *testing.T) *fixture {
	t.Helper()

	h, err := hub.New()
	require.NoError(t, err)
	f := &fixture{
		hub:      h,
		sub:      h.Subscribe(),
		tracker:  connstate.New(),
		registry: metric.NewMetricsRegistry(),
		result:   make(chan error, 1),
	}
	f.server = NewServer(ServerDeps{
		Address:         "127.0.0.1:0",
		Hub:             h,
		Tracker:         f.tracker,
		MetricsRegistry: f.registry,
		Now:             fixedNow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.result <- f.server.Serve(ctx) }()

	select {
	case <-f.server.Ready():
	case err := <-f.result:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not bind")
	}

	t.Cleanup(func() {
		f.stop(t)
		f.sub.Close()
		h.Close()
	})
	return f
}

func (f *fixture) stop(t *testing.T) {
	f.cancel()
	select {
	case err, ok := <-f.result:
		if ok {
			assert.NoError(t, err)
			close(f.result)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop")
	}
}

func (f *fixture) dial(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", f.server.Addr().String())
	require.NoError(t, err)
	return conn
}

func (f *fixture) next(t *testing.T) message.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := f.sub.Recv(ctx)
	require.NoError(t, err)
	return ev
}

func TestServer_ConnectionLifecycle(t *testing.T) {
	f := startServer(t)

	conn := f.dial(t)
	assert.Equal(t, message.Connected(), f.next(t))
	assert.True(t, f.tracker.Get())

	_, err := fmt.Fprint(conn,
		`{"Passing":{"Transponder":"TR002","UTCTime":"2024-01-12T09:06:35.944Z"},"Time":32795.5}`+"\n",
		"\n",
		"   \n",
		"not json\n",
		`{"Passing":{"Transponder":"TR009","UTCTime":"2024-01-12T10:00:00Z","Hits":2}}`+"\r\n",
	)
	require.NoError(t, err)

	ev := f.next(t)
	require.True(t, ev.IsPassing())
	assert.Equal(t, "09:06:35.500", ev.Passing.Time)
	assert.Equal(t, "2024-01-12", ev.Passing.Date)
	assert.Equal(t, "2024-01-12T09:06:35.500", ev.Passing.RTCTime)

	// malformed line was dropped without closing the connection
	ev = f.next(t)
	require.True(t, ev.IsPassing())
	assert.Equal(t, "TR009", ev.Passing.Transponder)
	assert.Equal(t, uint32(2), ev.Passing.Hits)

	require.NoError(t, conn.Close())
	assert.Equal(t, message.Disconnected(), f.next(t))
	assert.False(t, f.tracker.Get())

	core := f.registry.CoreMetrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(core.PassingsPublished.WithLabelValues("jsonline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.RecordsMalformed.WithLabelValues("jsonline")))
	assert.Equal(t, 1, f.server.Health().ErrorCount)
}

// One producer leaving announces a disconnect even while another is still
// connected and sending.
func TestServer_OverlappingProducersShareStatus(t *testing.T) {
	f := startServer(t)

	a := f.dial(t)
	assert.Equal(t, message.Connected(), f.next(t))
	b := f.dial(t)
	defer b.Close()
	assert.Equal(t, message.Connected(), f.next(t))

	require.NoError(t, a.Close())
	assert.Equal(t, message.Disconnected(), f.next(t))
	assert.False(t, f.tracker.Get())

	_, err := fmt.Fprintln(b, `{"Passing":{"Transponder":"TR010","UTCTime":"2024-01-12T10:00:00Z"}}`)
	require.NoError(t, err)
	ev := f.next(t)
	require.True(t, ev.IsPassing())
	assert.Equal(t, "TR010", ev.Passing.Transponder)
	assert.False(t, f.tracker.Get())
	assert.Equal(t, 1, f.server.ActiveConnections())
}

func TestServer_ShutdownClosesProducers(t *testing.T) {
	f := startServer(t)

	conn := f.dial(t)
	defer conn.Close()
	assert.Equal(t, message.Connected(), f.next(t))
	assert.True(t, f.server.Health().Healthy)

	f.stop(t)
	assert.Equal(t, message.Disconnected(), f.next(t))
	assert.Equal(t, 0, f.server.ActiveConnections())
	assert.Equal(t, "stopped", f.server.Health().State)
}

func TestServer_BindFailureIsFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h, err := hub.New()
	require.NoError(t, err)
	defer h.Close()

	s := NewServer(ServerDeps{Address: ln.Addr().String(), Hub: h})
	err = s.Serve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, errors.ErrBindFailed)
	assert.Nil(t, s.Addr())
	assert.False(t, s.Health().Healthy)
}

func TestServer_Meta(t *testing.T) {
	s := NewServer(ServerDeps{Address: "0.0.0.0:3000"})
	assert.Equal(t, "jsonline", s.Meta().Name)
	assert.Equal(t, "input", s.Meta().Type)

	err := s.Serve(context.Background())
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

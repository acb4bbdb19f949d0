package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Disconnect reasons reported in metrics and logs
const (
	reasonClientClosed = "client_closed"
	reasonWriteError   = "write_error"
	reasonShutdown     = "shutdown"
	reasonHubClosed    = "hub_closed"
)

// client is one upgraded connection. Only serve writes data frames;
// pings go through WriteControl, which may run concurrently with it.
type client struct {
	id          string
	conn        *websocket.Conn
	output      *Output
	connectedAt time.Time
	lagLimiter  *rate.Limiter
	logger      *slog.Logger
	reason      string
}

// serve subscribes to the hub and writes events until the client or the output goes away
func (c *client) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sub := c.output.hub.Subscribe()
	defer sub.Close()

	go c.readLoop(cancel)
	go c.pingLoop(ctx)

	if !c.write(message.StatusFor(c.output.tracker.Get())) {
		return
	}

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lagged *hub.LaggedError
			switch {
			case stderrors.As(err, &lagged):
				c.output.metrics.recordLag(lagged.Skipped)
				if c.lagLimiter.Allow() {
					c.logger.Warn("WebSocket client lagged behind, events skipped",
						"skipped", lagged.Skipped)
				}
				continue
			case stderrors.Is(err, hub.ErrHubClosed):
				c.close(reasonHubClosed, websocket.CloseGoingAway)
			case parent.Err() != nil:
				c.close(reasonShutdown, websocket.CloseGoingAway)
			default:
				c.setReason(reasonClientClosed)
			}
			return
		}

		if !c.write(ev) {
			return
		}
	}
}

// write sends one event as a text frame and reports whether the client is still usable
func (c *client) write(ev message.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		c.output.flow.RecordError(err)
		c.logger.Error("Failed to encode event", "event", ev.String(), "error", err)
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.output.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.IsDisconnect(err) || websocket.IsCloseError(err,
			websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.setReason(reasonClientClosed)
			c.logger.Debug("WebSocket client went away during write", "error", err)
			return false
		}
		c.setReason(reasonWriteError)
		c.output.flow.RecordError(err)
		c.output.metrics.recordError("write")
		c.logger.Warn("WebSocket write failed", "error", err)
		return false
	}

	c.output.flow.RecordMessage(len(data))
	c.output.metrics.recordSent(ev.Kind, len(data))
	return true
}

// readLoop discards inbound frames and cancels the client when the peer is gone
func (c *client) readLoop(cancel context.CancelFunc) {
	defer cancel()

	readTimeout := 2 * c.output.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.IsDisconnect(err) {
				c.logger.Debug("WebSocket read ended", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (c *client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.output.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.output.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// close sends a close frame before the connection is torn down
func (c *client) close(reason string, code int) {
	c.setReason(reason)
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

func (c *client) setReason(reason string) {
	if c.reason == "" {
		c.reason = reason
	}
}

// Package hub fans timing events out to any number of independent subscribers.
//
// Publish never blocks and reports how many subscribers the event was
// delivered to. Each subscriber reads through its own cursor into a shared,
// bounded ring of recent events. A subscriber that falls more than the ring
// capacity behind receives a *LaggedError reporting how many events it missed
// and then continues from the oldest event still retained.
//
// Subscribers only observe events published after they subscribed.
//
//	h, _ := hub.New(hub.WithCapacity(100))
//	sub := h.Subscribe()
//	defer sub.Close()
//
//	for {
//		ev, err := sub.Recv(ctx)
//		if errors.Is(err, hub.ErrLagged) {
//			continue
//		}
//		if err != nil {
//			return err
//		}
//		handle(ev)
//	}
package hub

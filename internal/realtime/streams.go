package realtime

import (
	"context"

	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/outbox"
)

// Named realtime streams.
const (
	StreamConnectivity = "sync.connectivity"
	StreamOutbox       = "sync.outbox"
)

// Streams lists every stream clients may subscribe to.
var Streams = []string{StreamConnectivity, StreamOutbox}

// Events published on the streams.
const (
	EventOnline  = "online"
	EventOffline = "offline"
	EventDrained = "drained"
)

// WatchConnectivity relays monitor transitions to connectivity subscribers
// and returns the unsubscribe function.
func (h *Hub) WatchConnectivity(monitor connectivity.Monitor) func() {
	return monitor.Subscribe(func(event connectivity.Event) {
		name := EventOffline
		if event.Online {
			name = EventOnline
		}
		h.BroadcastStream(StreamConnectivity, Message{Event: name, Data: event})
	})
}

// DrainHook returns an outbox hook that announces drain results. Every
// subscriber receives the summary; users whose entries were replayed also get
// the ids of their records.
func (h *Hub) DrainHook() outbox.Hook {
	return func(_ context.Context, result outbox.Result) {
		h.BroadcastStream(StreamOutbox, Message{Event: EventDrained, Data: result})

		replayed := map[string][]string{}
		for _, entry := range result.Entries {
			if entry.UserID != "" {
				replayed[entry.UserID] = append(replayed[entry.UserID], entry.RecordID)
			}
		}
		for userID, ids := range replayed {
			h.BroadcastToUser(StreamOutbox, userID, Message{
				Event: EventDrained,
				Data:  map[string]any{"record_ids": ids},
				Meta:  map[string]any{"scope": "user"},
			})
		}
	}
}

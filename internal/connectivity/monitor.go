package connectivity

import (
	"sort"
	"sync"
	"time"

	"github.com/charlesng35/wavtrack/pkg/metrics"
)

// Event describes a connectivity transition.
type Event struct {
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

// Listener receives transitions. Listeners run synchronously on the goroutine
// that observed the change and must not block.
type Listener func(Event)

// Monitor reports whether the remote store is reachable and notifies
// subscribers when that changes.
type Monitor interface {
	Online() bool
	Subscribe(fn Listener) (unsubscribe func())
}

// broadcaster holds the state shared by Monitor implementations.
type broadcaster struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]Listener
	now       func() time.Time
}

func newBroadcaster(initial bool) *broadcaster {
	setGauge(initial)
	return &broadcaster{
		online:    initial,
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

func (b *broadcaster) Online() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// set records the new state and notifies listeners only on change.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	if b.online == online {
		b.mu.Unlock()
		return false
	}
	b.online = online
	event := Event{Online: online, At: b.now().UTC()}

	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.Unlock()

	setGauge(online)
	for _, fn := range listeners {
		fn(event)
	}
	return true
}

func setGauge(online bool) {
	if online {
		metrics.Online.Set(1)
		return
	}
	metrics.Online.Set(0)
}

// Manual is a Monitor whose state is set explicitly. It backs forced-offline
// operation and tests.
type Manual struct {
	*broadcaster
}

// NewManual returns a Manual monitor starting in the given state.
func NewManual(online bool) *Manual {
	return &Manual{broadcaster: newBroadcaster(online)}
}

// SetOnline changes the state, notifying subscribers when it differs. It
// reports whether a transition happened.
func (m *Manual) SetOnline(online bool) bool {
	return m.set(online)
}

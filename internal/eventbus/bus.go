package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/schema"
)

// AllWindows subscribes to events of every window.
const AllWindows schema.WindowID = ""

// Bus fans out window events to subscribers. Subscribers either follow one
// window or all of them.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.WindowID]map[chan schema.WindowEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.WindowID]map[chan schema.WindowEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for windowID (or AllWindows) and returns
// a channel + cancel.
func (b *Bus) Subscribe(windowID schema.WindowID) (<-chan schema.WindowEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.WindowEvent, b.depth)
	b.mu.Lock()
	windowSubs := b.subs[windowID]
	if windowSubs == nil {
		windowSubs = make(map[chan schema.WindowEvent]struct{})
		b.subs[windowID] = windowSubs
	}
	windowSubs[ch] = struct{}{}
	count := len(windowSubs)
	b.mu.Unlock()
	log := b.log
	if windowID != AllWindows {
		log = log.With("window", windowID)
	}
	log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[windowID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, windowID)
				}
			}
			close(ch)
			b.mu.Unlock()
			log.Debug("eventbus unsubscribe")
		})
	}
}

// OnWindowEvent publishes a window event to the window's subscribers and to
// every all-windows subscriber.
func (b *Bus) OnWindowEvent(event schema.WindowEvent) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs[AllWindows] {
		if !offer(sub, event) {
			dropped++
		}
	}
	if event.Window.ID != AllWindows {
		for sub := range b.subs[event.Window.ID] {
			if !offer(sub, event) {
				dropped++
			}
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("window", event.Window.ID).Trace("eventbus dropped", "count", dropped)
	}
}

func offer(sub chan schema.WindowEvent, event schema.WindowEvent) bool {
	select {
	case sub <- event:
		return true
	default:
		return false
	}
}

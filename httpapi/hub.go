package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/tabsession/internal/logx"
	"pkt.systems/tabsession/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq         uint64                  `json:"seq"`
	Type        string                  `json:"type"`
	WindowEvent schema.WindowEventType  `json:"window_event,omitempty"`
	TabID       schema.TabID            `json:"tab_id,omitempty"`
	Window      *schema.WindowSnapshot  `json:"window,omitempty"`
	Windows     []schema.WindowSnapshot `json:"windows,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

const (
	streamEventWindow   = "window"
	streamEventSnapshot = "snapshot"
)

// Hub broadcasts window events to stream subscribers and keeps a bounded,
// sequence-numbered history for reconnecting clients.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
	}
}

// OnWindowEvent implements core.EventSink.
func (h *Hub) OnWindowEvent(event schema.WindowEvent) {
	log := logx.WithWindowTab(context.Background(), event.Window.ID, event.Tab)
	log.Trace("hub window event", "type", event.Type, "tabs", len(event.Window.Tabs))
	window := event.Window
	h.publish(StreamEvent{
		Type:        streamEventWindow,
		WindowEvent: event.Type,
		TabID:       event.Tab,
		Window:      &window,
		Timestamp:   time.Now(),
	})
}

// Subscribe registers a subscriber. It returns the channel, the cancel
// function, and the history events newer than after. A zero after returns no
// history.
func (h *Hub) Subscribe(after uint64) (<-chan StreamEvent, func(), []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	missed := h.since(after)
	log := logx.Ctx(context.Background())
	log.Info("hub subscribe", "subs", len(h.subs), "after", after, "missed", len(missed))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, missed
}

// since returns a copy of the history after seq. Callers hold h.mu.
func (h *Hub) since(after uint64) []StreamEvent {
	if after == 0 || after >= h.seq {
		return nil
	}
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	return events
}

// Seq returns the sequence number of the newest event.
func (h *Hub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}

	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logx.WithWindow(context.Background(), windowOf(event)).Warn("hub event dropped", "type", event.WindowEvent, "dropped", dropped)
	}
}

func windowOf(event StreamEvent) schema.WindowID {
	if event.Window == nil {
		return ""
	}
	return event.Window.ID
}

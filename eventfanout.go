package tabsession

import (
	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/schema"
)

// eventFanout delivers every window event to each sink in order.
type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnWindowEvent(event schema.WindowEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnWindowEvent(event)
	}
}

func fanout(sinks ...core.EventSink) core.EventSink {
	out := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return eventFanout{sinks: out}
	}
}

package core

import "pkt.systems/pslog"

// ControllerDeps captures optional dependencies for the window controller.
type ControllerDeps struct {
	Host      WindowHost
	EventSink EventSink
	Logger    pslog.Logger
}

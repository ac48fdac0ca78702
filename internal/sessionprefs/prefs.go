package sessionprefs

import (
	"context"
	"sync"

	"pkt.systems/tabsession/schema"
)

// Prefs captures per front-end session state. A session's input loop writes
// it while controller calls read it, so access goes through the methods.
type Prefs struct {
	mu            sync.Mutex
	focusedWindow schema.WindowID
}

type prefsKey struct{}

// New returns a new Prefs instance with defaults applied.
func New() *Prefs {
	return &Prefs{}
}

// FocusedWindow returns the window that receives unaddressed shortcuts.
func (p *Prefs) FocusedWindow() schema.WindowID {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focusedWindow
}

// SetFocusedWindow records the window the session is interacting with.
func (p *Prefs) SetFocusedWindow(id schema.WindowID) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.focusedWindow = id
	p.mu.Unlock()
}

// WithContext stores prefs in the context.
func WithContext(ctx context.Context, prefs *Prefs) context.Context {
	if ctx == nil || prefs == nil {
		return ctx
	}
	return context.WithValue(ctx, prefsKey{}, prefs)
}

// FromContext returns the prefs stored in the context, if any.
func FromContext(ctx context.Context) *Prefs {
	if ctx == nil {
		return nil
	}
	if value := ctx.Value(prefsKey{}); value != nil {
		if prefs, ok := value.(*Prefs); ok {
			return prefs
		}
	}
	return nil
}

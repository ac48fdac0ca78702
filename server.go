package tabsession

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/httpapi"
	"pkt.systems/tabsession/internal/eventbus"
	"pkt.systems/tabsession/internal/persist"
	"pkt.systems/tabsession/schema"
	"pkt.systems/tabsession/sshserver"
	"pkt.systems/tabsession/surface"
)

// Server composes the HTTP and SSH front-ends around one session.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Session schema.SessionConfig
	HTTP    httpapi.Config
	SSH     sshserver.Config
	// TabMaxWidth truncates tab labels in every front-end.
	TabMaxWidth int
	// StateDir, when set, keeps the window layout across restarts.
	StateDir string
}

// ServerDeps captures optional dependencies of the server.
type ServerDeps struct {
	// EventSink receives window events in addition to the built-in sinks.
	EventSink core.EventSink
	Logger    pslog.Logger
	// HTTPListener and SSHListener replace listening on the configured
	// addresses.
	HTTPListener net.Listener
	SSHListener  net.Listener
}

// Runtime is the session state every front-end attaches to: the controller,
// the window host it renders into, and the event fanouts.
type Runtime struct {
	Controller *core.Controller
	Host       *surface.Host
	Bus        *eventbus.Bus
	Hub        *httpapi.Hub

	store  *persist.Store
	saved  atomic.Bool
	logger pslog.Logger
}

// NewRuntime builds a controller wired to a surface host, an event bus, and
// an SSE hub.
func NewRuntime(cfg ServerConfig, deps ServerDeps) (*Runtime, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	rt := &Runtime{
		Host:   surface.NewHost(cfg.TabMaxWidth),
		Bus:    eventbus.New(logger),
		Hub:    httpapi.NewHub(cfg.HTTP.HistoryLimit),
		logger: logger,
	}
	if cfg.StateDir != "" {
		store, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		rt.store = store
	}
	controller, err := core.NewController(cfg.Session, core.ControllerDeps{
		Host:      rt.Host,
		EventSink: fanout(deps.EventSink, rt.Bus, rt.Hub),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Controller = controller
	return rt, nil
}

// EnsureWindow opens a window when none is open. With a state directory the
// saved layout is restored instead of a single default window.
func (rt *Runtime) EnsureWindow(ctx context.Context) error {
	list, err := rt.Controller.ListWindows(ctx, schema.ListWindowsRequest{})
	if err != nil {
		return err
	}
	if len(list.Windows) > 0 {
		return nil
	}
	if rt.store != nil {
		layout, ok, err := rt.store.Load()
		if err != nil {
			rt.logger.Warn("layout restore skipped", "err", err)
		} else if ok && rt.restore(ctx, layout) > 0 {
			return nil
		}
	}
	_, err = rt.Controller.OpenWindow(ctx, schema.OpenWindowRequest{})
	return err
}

// restore reopens the windows of a saved layout and returns how many opened.
func (rt *Runtime) restore(ctx context.Context, layout persist.Layout) int {
	opened := 0
	for _, w := range layout.Windows {
		if len(w.Tabs) == 0 {
			continue
		}
		resp, err := rt.Controller.OpenWindow(ctx, schema.OpenWindowRequest{Header: w.Tabs[0].Header, Pinned: w.Tabs[0].Pinned})
		if err != nil {
			rt.logger.Warn("layout window restore failed", "err", err)
			continue
		}
		opened++
		ids := []schema.TabID{resp.Tab.ID}
		for _, tab := range w.Tabs[1:] {
			added, err := rt.Controller.NewTab(ctx, schema.NewTabRequest{
				WindowID: resp.Window.ID,
				Header:   tab.Header,
				Pinned:   tab.Pinned,
			})
			if err != nil {
				rt.logger.Warn("layout tab restore failed", "window", resp.Window.ID, "err", err)
				continue
			}
			ids = append(ids, added.Tab.ID)
		}
		if w.Selected > 0 && w.Selected < len(ids) {
			if _, err := rt.Controller.SelectTab(ctx, schema.SelectTabRequest{WindowID: resp.Window.ID, TabID: ids[w.Selected]}); err != nil {
				rt.logger.Warn("layout selection restore failed", "window", resp.Window.ID, "err", err)
			}
		}
	}
	rt.logger.Info("layout restored", "windows", opened)
	return opened
}

// Close saves the layout when a state directory is set, then shuts the
// controller down.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.store != nil && !rt.saved.Swap(true) {
		if list, err := rt.Controller.ListWindows(ctx, schema.ListWindowsRequest{}); err == nil {
			if err := rt.store.Save(persist.LayoutFromSnapshots(list.Windows)); err != nil {
				rt.logger.Warn("layout save failed", "err", err)
			}
		}
	}
	return rt.Controller.Close(ctx)
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable tabsession server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	normalized, err := schema.NormalizeSessionConfig(cfg.Session)
	if err != nil {
		return nil, err
	}
	cfg.Session = normalized

	rt, err := NewRuntime(cfg, deps)
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, rt.Controller, rt.Hub)
	}
	if options.enableSSH {
		sshSrv = &sshserver.Server{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
			Listener:           deps.SSHListener,
			Session:            rt.Controller,
			Host:               rt.Host,
			EventBus:           rt.Bus,
		}
	}

	return &compositeServer{
		cfg:          cfg,
		options:      options,
		runtime:      rt,
		httpSrv:      httpSrv,
		httpListener: deps.HTTPListener,
		sshSrv:       sshSrv,
	}, nil
}

type compositeServer struct {
	cfg          ServerConfig
	options      serverOptions
	runtime      *Runtime
	httpSrv      *httpapi.Server
	httpListener net.Listener
	sshSrv       *sshserver.Server
	logger       pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if err := s.runtime.EnsureWindow(s.ctx); err != nil {
		log.Warn("server initial window failed", "err", err)
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			var err error
			if s.httpListener != nil {
				err = httpapi.Serve(s.ctx, s.httpListener, s.httpSrv.Handler())
			} else {
				err = httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler())
			}
			if err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSSH && s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	closeCtx := ctx
	if closeCtx == nil {
		closeCtx = context.Background()
	}
	if s.runtime != nil {
		if err := s.runtime.Close(closeCtx); err != nil {
			log.Warn("server session close failed", "err", err)
			return err
		}
		log.Info("server session close ok")
	}
	log.Info("server stopped")
	return nil
}

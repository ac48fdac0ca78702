package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gliderssh "github.com/gliderlabs/ssh"
	"github.com/muesli/termenv"
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/internal/eventbus"
	"pkt.systems/tabsession/internal/tui"
	"pkt.systems/tabsession/surface"
)

// Server serves the terminal front-end over SSH. Every connection shares
// the same session controller, so windows opened in one terminal show up in
// all of them.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Session            core.Session
	Host               *surface.Host
	EventBus           *eventbus.Bus
	logger             pslog.Logger
	authorized         *AuthorizedKeys
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	if s.AuthorizedKeysPath != "" {
		s.authorized, err = NewAuthorizedKeys(s.AuthorizedKeysPath)
		if err != nil {
			return err
		}
		server.PublicKeyHandler = s.handlePublicKey
		s.logger.Info("ssh authorized keys loaded", "path", s.AuthorizedKeysPath, "keys", s.authorized.Len())
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			s.logger.Info("ssh listening", "addr", s.Listener.Addr().String())
			errCh <- server.Serve(s.Listener)
			return
		}
		s.logger.Info("ssh listening", "addr", s.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	ok, err := s.authorized.Allowed(key)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	if !ok {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
	if id := sess.Context().SessionID(); id != "" {
		log = log.With("ssh_session", id)
	}
	ctx := pslog.ContextWithLogger(sess.Context(), log)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	log.Info("ssh session opened", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)
	renderer := lipgloss.NewRenderer(sess)
	renderer.SetColorProfile(termenv.ANSI256)
	program, model := tui.NewProgram(ctx, tui.Options{
		Session:  s.Session,
		Host:     s.Host,
		Bus:      s.EventBus,
		Renderer: renderer,
		Logger:   log,
	}, sess, sess)
	defer model.Close()

	go func() {
		program.Send(tea.WindowSizeMsg{Width: pty.Window.Width, Height: pty.Window.Height})
		for {
			select {
			case <-ctx.Done():
				return
			case win, ok := <-winCh:
				if !ok {
					return
				}
				program.Send(tea.WindowSizeMsg{Width: win.Width, Height: win.Height})
			}
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Warn("ssh session ui failed", "err", err)
	}
	log.Info("ssh session closed")
	_ = sess.Exit(0)
}

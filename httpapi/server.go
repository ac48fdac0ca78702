package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/dragdrop"
	"pkt.systems/tabsession/internal/logx"
	"pkt.systems/tabsession/schema"
)

// Server serves the window and tab HTTP API.
type Server struct {
	cfg     Config
	session core.Session
	hub     *Hub
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, session core.Session, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.HistoryLimit)
	}
	return &Server{
		cfg:     cfg,
		session: session,
		hub:     hub,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/windows", s.handleWindows)
	mux.HandleFunc("/api/windows/close", s.handleCloseWindow)
	mux.HandleFunc("/api/tabs", s.handleNewTab)
	mux.HandleFunc("/api/tabs/close", s.handleCloseTab)
	mux.HandleFunc("/api/tabs/select", s.handleSelectTab)
	mux.HandleFunc("/api/tabs/rename", s.handleRenameTab)
	mux.HandleFunc("/api/drag", s.handleDrag)
	mux.HandleFunc("/api/detach", s.handleDetach)
	mux.HandleFunc("/api/shortcut", s.handleShortcut)
	mux.HandleFunc("/api/stream", s.handleStream)
	return withRequestLogging(mux)
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logx.Ctx(ctx)
	switch r.Method {
	case http.MethodGet:
		if id := schema.WindowID(r.URL.Query().Get("window")); id != "" {
			resp, err := s.session.GetWindow(ctx, schema.GetWindowRequest{WindowID: id})
			if err != nil {
				log.Warn("http window get failed", "window", id, "err", err)
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}
		resp, err := s.session.ListWindows(ctx, schema.ListWindowsRequest{})
		if err != nil {
			log.Warn("http windows list failed", "err", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Debug("http windows list ok", "count", len(resp.Windows))
	case http.MethodPost:
		var payload struct {
			Header string `json:"header"`
			Pinned bool   `json:"pinned"`
		}
		if err := decodeOptionalJSON(r.Body, &payload); err != nil {
			log.Warn("http window decode failed", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := s.session.OpenWindow(ctx, schema.OpenWindowRequest{Header: schema.TabHeader(payload.Header), Pinned: payload.Pinned})
		if err != nil {
			log.Warn("http window open failed", "err", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http window open ok", "window", resp.Window.ID, "tab", resp.Tab.ID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		WindowID string `json:"window_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http window close decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := schema.WindowID(payload.WindowID)
	log := logx.WithWindow(r.Context(), id)
	resp, err := s.session.CloseWindow(r.Context(), schema.CloseWindowRequest{WindowID: id})
	if err != nil {
		log.Warn("http window close failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http window close ok")
}

func (s *Server) handleNewTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		WindowID string `json:"window_id"`
		Header   string `json:"header"`
		Select   bool   `json:"select"`
		Pinned   bool   `json:"pinned"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http tab new decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := schema.WindowID(payload.WindowID)
	log := logx.WithWindow(r.Context(), id)
	resp, err := s.session.NewTab(r.Context(), schema.NewTabRequest{
		WindowID: id,
		Header:   schema.TabHeader(payload.Header),
		Select:   payload.Select,
		Pinned:   payload.Pinned,
	})
	if err != nil {
		log.Warn("http tab new failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http tab new ok", "tab", resp.Tab.ID)
}

type tabPayload struct {
	WindowID string `json:"window_id"`
	TabID    string `json:"tab_id"`
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload tabPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http tab close decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log := logx.WithWindowTab(r.Context(), schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
	resp, err := s.session.CloseTab(r.Context(), schema.CloseTabRequest{
		WindowID: schema.WindowID(payload.WindowID),
		TabID:    schema.TabID(payload.TabID),
	})
	if err != nil {
		log.Warn("http tab close failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http tab close ok", "closed", resp.Closed, "window_closed", resp.WindowClosed)
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload tabPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http tab select decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log := logx.WithWindowTab(r.Context(), schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
	resp, err := s.session.SelectTab(r.Context(), schema.SelectTabRequest{
		WindowID: schema.WindowID(payload.WindowID),
		TabID:    schema.TabID(payload.TabID),
	})
	if err != nil {
		log.Warn("http tab select failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debug("http tab select ok")
}

func (s *Server) handleRenameTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		tabPayload
		Header string `json:"header"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http tab rename decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log := logx.WithWindowTab(r.Context(), schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
	resp, err := s.session.RenameTab(r.Context(), schema.RenameTabRequest{
		WindowID: schema.WindowID(payload.WindowID),
		TabID:    schema.TabID(payload.TabID),
		Header:   schema.TabHeader(payload.Header),
	})
	if err != nil {
		log.Warn("http tab rename failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http tab rename ok", "header", resp.Tab.Header)
}

// handleDrag performs a whole drag in one request: the tab is picked up from
// its window and dropped on the target window's strip at x. A tag other than
// the session's payload tag models a foreign drag and is left unhandled.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		tabPayload
		TargetID string `json:"target_id"`
		X        int    `json:"x"`
		Tag      string `json:"tag"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http drag decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	log := logx.WithMove(logx.WithWindowTab(ctx, "", schema.TabID(payload.TabID)), schema.WindowID(payload.WindowID), schema.WindowID(payload.TargetID))
	drop := schema.DropRequest{WindowID: schema.WindowID(payload.TargetID), X: payload.X}

	tag := schema.PayloadTag(payload.Tag)
	if tag == "" {
		tag = s.session.PayloadTag()
	}
	var dragged dragdrop.Payload[*core.DragSession]
	if tag == s.session.PayloadTag() {
		session, err := s.session.BeginDrag(ctx, schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
		if err != nil {
			log.Warn("http drag start failed", "err", err)
			writeError(w, statusFor(err), err)
			return
		}
		dragged = session.Payload()
	} else {
		dragged = dragdrop.Foreign[*core.DragSession](tag)
	}

	resp, err := s.session.Drop(ctx, dragged, drop)
	if err != nil {
		log.Warn("http drag drop failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http drag ok", "handled", resp.Handled, "index", resp.Index, "source_closed", resp.SourceClosed)
}

func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload tabPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http detach decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	log := logx.WithWindowTab(ctx, schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
	session, err := s.session.BeginDrag(ctx, schema.WindowID(payload.WindowID), schema.TabID(payload.TabID))
	if err != nil {
		log.Warn("http detach start failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	resp, err := s.session.DropOutside(ctx, session.Payload())
	if err != nil {
		log.Warn("http detach failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http detach ok", "detached", resp.Detached, "new_window", resp.Window.ID)
}

func (s *Server) handleShortcut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		WindowID string `json:"window_id"`
		Chord    string `json:"chord"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http shortcut decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log := logx.WithWindow(r.Context(), schema.WindowID(payload.WindowID))
	resp, err := s.session.HandleShortcut(r.Context(), schema.ShortcutRequest{
		WindowID: schema.WindowID(payload.WindowID),
		Chord:    payload.Chord,
	})
	if err != nil {
		log.Warn("http shortcut failed", "chord", payload.Chord, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debug("http shortcut ok", "chord", payload.Chord, "handled", resp.Handled, "action", resp.Action)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	ctx := r.Context()
	log := logx.Ctx(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before the snapshot so no event falls between the two.
	ch, unsubscribe, missed := s.hub.Subscribe(lastID)
	defer unsubscribe()

	snapshot := s.buildSnapshot(ctx)
	_ = writeSSEvent(w, StreamEvent{
		Type:      streamEventSnapshot,
		Windows:   snapshot,
		Timestamp: time.Now(),
	})
	for _, event := range missed {
		_ = writeSSEvent(w, event)
	}
	flusher.Flush()

	log.Info("http stream opened", "last_id", lastID, "replay", len(missed), "windows", len(snapshot))
	for {
		select {
		case <-ctx.Done():
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(ctx context.Context) []schema.WindowSnapshot {
	resp, err := s.session.ListWindows(ctx, schema.ListWindowsRequest{})
	if err != nil {
		return nil
	}
	return resp.Windows
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidRequest), errors.Is(err, schema.ErrNoFocusedWindow):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrWindowNotFound), errors.Is(err, schema.ErrTabNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrWindowClosed),
		errors.Is(err, schema.ErrHandoffCancelled),
		errors.Is(err, schema.ErrDragEnded),
		errors.Is(err, schema.ErrDuplicateTab),
		errors.Is(err, schema.ErrContentParented):
		return http.StatusConflict
	case errors.Is(err, schema.ErrControllerClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(body io.Reader, target any) error {
	if err := decodeJSON(body, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

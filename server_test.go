package tabsession

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/tabsession/httpapi"
	"pkt.systems/tabsession/schema"
	"pkt.systems/tabsession/sshserver"
)

type recordingSink struct {
	events chan schema.WindowEvent
}

func (r *recordingSink) OnWindowEvent(event schema.WindowEvent) {
	r.events <- event
}

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(ServerConfig{}, ServerDeps{}); err == nil {
		t.Fatalf("expected error without services")
	}
}

func TestServerStopClosesSession(t *testing.T) {
	rt, err := NewRuntime(ServerConfig{}, ServerDeps{})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.EnsureWindow(context.Background()); err != nil {
		t.Fatalf("ensure window: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	server := &compositeServer{
		runtime: rt,
		ctx:     ctx,
		cancel:  cancel,
		started: true,
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected server context to be canceled")
	}
	list, _ := rt.Controller.ListWindows(context.Background(), schema.ListWindowsRequest{})
	if len(list.Windows) != 0 {
		t.Fatalf("expected windows closed on stop, got %d", len(list.Windows))
	}
	if _, err := rt.Controller.OpenWindow(context.Background(), schema.OpenWindowRequest{}); err == nil {
		t.Fatalf("expected controller closed after stop")
	}
}

func TestRuntimeFansOutEvents(t *testing.T) {
	sink := &recordingSink{events: make(chan schema.WindowEvent, 4)}
	rt, err := NewRuntime(ServerConfig{}, ServerDeps{EventSink: sink})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()
	ch, unsubscribe := rt.Bus.Subscribe("")
	defer unsubscribe()

	if err := rt.EnsureWindow(context.Background()); err != nil {
		t.Fatalf("ensure window: %v", err)
	}
	if err := rt.EnsureWindow(context.Background()); err != nil {
		t.Fatalf("ensure window again: %v", err)
	}
	if event := <-sink.events; event.Type != schema.WindowEventOpened {
		t.Fatalf("expected opened event on custom sink, got %s", event.Type)
	}
	if event := <-ch; event.Type != schema.WindowEventOpened {
		t.Fatalf("expected opened event on bus, got %s", event.Type)
	}
	if rt.Hub.Seq() != 1 {
		t.Fatalf("expected one hub event, got %d", rt.Hub.Seq())
	}
}

func TestServerServesHTTPAndSSH(t *testing.T) {
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen http: %v", err)
	}
	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen ssh: %v", err)
	}
	cfg := ServerConfig{
		HTTP: httpapi.Config{HistoryLimit: 10},
		SSH:  sshserver.Config{HostKeyPath: filepath.Join(t.TempDir(), "host_key")},
	}
	srv, err := New(cfg, ServerDeps{HTTPListener: httpLn, SSHListener: sshLn}, WithHTTP(), WithSSH())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	url := "http://" + httpLn.Addr().String() + "/api/windows"
	var list schema.ListWindowsResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&list)
			_ = resp.Body.Close()
		}
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("http api not reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(list.Windows) != 1 || list.Windows[0].Tabs[0].Header != schema.DefaultTabHeader {
		t.Fatalf("expected the initial window, got %+v", list.Windows)
	}

	conn, err := net.DialTimeout("tcp", sshLn.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial ssh: %v", err)
	}
	_ = conn.Close()
}

func TestRuntimeRestoresLayout(t *testing.T) {
	ctx := context.Background()
	cfg := ServerConfig{StateDir: t.TempDir()}
	first, err := NewRuntime(cfg, ServerDeps{})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	opened, err := first.Controller.OpenWindow(ctx, schema.OpenWindowRequest{Header: "Home"})
	if err != nil {
		t.Fatalf("open window: %v", err)
	}
	docs, err := first.Controller.NewTab(ctx, schema.NewTabRequest{WindowID: opened.Window.ID, Header: "Docs", Select: true, Pinned: true})
	if err != nil {
		t.Fatalf("new tab: %v", err)
	}
	if _, err := first.Controller.OpenWindow(ctx, schema.OpenWindowRequest{Header: "Settings", Pinned: true}); err != nil {
		t.Fatalf("open second window: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}

	second, err := NewRuntime(cfg, ServerDeps{})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	defer func() { _ = second.Close(ctx) }()
	if err := second.EnsureWindow(ctx); err != nil {
		t.Fatalf("ensure window: %v", err)
	}
	list, err := second.Controller.ListWindows(ctx, schema.ListWindowsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Windows) != 2 {
		t.Fatalf("expected two restored windows, got %d", len(list.Windows))
	}
	restored := list.Windows[0]
	if got := restored.Headers(); len(got) != 2 || got[0] != "Home" || got[1] != "Docs" {
		t.Fatalf("unexpected restored headers %v", got)
	}
	if restored.Selected != restored.Tabs[1].ID {
		t.Fatalf("expected %s selected, got %s", docs.Tab.Header, restored.Selected)
	}
	if restored.Tabs[1].Closable {
		t.Fatalf("expected pinned tab to stay pinned")
	}
	if got := list.Windows[1].Headers(); len(got) != 1 || got[0] != "Settings" {
		t.Fatalf("unexpected second window headers %v", got)
	}
	if list.Windows[1].Tabs[0].Closable {
		t.Fatalf("expected pinned first tab to stay pinned")
	}
}

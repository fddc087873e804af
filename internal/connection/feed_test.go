package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/signalhub/internal/signal"
)

// mockWSServer creates a test feed server that requires key "k".
func mockWSServer(t *testing.T, handler func(*websocket.Conn, *http.Request)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
}

func testConfig(server *httptest.Server) ClientConfig {
	return ClientConfig{
		URL:          server.URL,
		Channel:      "c",
		Key:          "k",
		PingTimeout:  30 * time.Second,
		WriteTimeout: time.Second,
		MinBackoff:   10 * time.Millisecond,
		MaxBackoff:   50 * time.Millisecond,
	}
}

func goingAway(conn *websocket.Conn) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
		time.Now().Add(time.Second),
	)
}

// holdOpen reads until the client leaves.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestFeed_Run_Deliveries(t *testing.T) {
	frames := []string{
		`{"cmd":"BUY","symbol":"GOLD","id":"C-1","entry":2015.5,"sl":2005,"n":3,"who":"ゆな","ts":1700000000000}`,
		`not json`,
		`{"cmd":"HOLD","symbol":"GOLD","id":"C-2","ts":1}`,
		`{"cmd":"SELL","symbol":"GOLD","id":"C-3","ts":1700000000500}`,
	}
	paths := make(chan string, 1)
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		paths <- r.URL.Path
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		goingAway(conn)
	})
	defer server.Close()

	var got []Delivery
	err := NewFeed(testConfig(server), nil).Run(context.Background(), func(d Delivery) error {
		got = append(got, d)
		return nil
	})
	if !errors.Is(err, ErrServerGoingAway) {
		t.Fatalf("Run() = %v, want ErrServerGoingAway", err)
	}
	if path := <-paths; path != "/ws/c" {
		t.Errorf("path = %q, want /ws/c", path)
	}

	if len(got) != 2 {
		t.Fatalf("got %d deliveries, want 2 (bad frames skipped)", len(got))
	}
	if got[0].Signal.ID != "C-1" || got[0].Signal.Command != signal.Buy {
		t.Errorf("first = %+v", got[0].Signal)
	}
	if got[0].Signal.Entry.Decimal.String() != "2015.5" || got[0].Signal.Positions != 3 {
		t.Errorf("first prices = %v, n = %d", got[0].Signal.Entry, got[0].Signal.Positions)
	}
	if got[0].Channel != "c" || got[0].ReceivedAt.IsZero() {
		t.Errorf("delivery metadata = %+v", got[0])
	}
	if got[1].Signal.ID != "C-3" || got[1].Signal.Command != signal.Sell {
		t.Errorf("second = %+v", got[1].Signal)
	}
}

func TestFeed_Run_Unauthorized(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {})
	defer server.Close()

	cfg := testConfig(server)
	cfg.Key = "wrong"

	if err := NewFeed(cfg, nil).Run(context.Background(), nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Run() = %v, want ErrUnauthorized", err)
	}
}

func TestFeed_Run_Cancel(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		holdOpen(conn)
	})
	defer server.Close()

	feed := NewFeed(testConfig(server), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- feed.Run(ctx, func(Delivery) error { return nil }) }()

	deadline := time.Now().Add(time.Second)
	for !feed.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !feed.IsConnected() {
		t.Fatal("feed never connected")
	}
	if err := feed.Run(ctx, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("concurrent Run() = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if feed.IsConnected() {
		t.Error("expected IsConnected to return false after Run returns")
	}
}

func TestFeed_Run_Stale(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		holdOpen(conn)
	})
	defer server.Close()

	cfg := testConfig(server)
	cfg.PingTimeout = 150 * time.Millisecond

	start := time.Now()
	err := NewFeed(cfg, nil).Run(context.Background(), func(Delivery) error { return nil })
	if !errors.Is(err, ErrStaleConnection) {
		t.Fatalf("Run() = %v, want ErrStaleConnection", err)
	}
	if elapsed := time.Since(start); elapsed < cfg.PingTimeout {
		t.Errorf("stale after %v, want at least %v", elapsed, cfg.PingTimeout)
	}
}

func TestFeed_Run_PingKeepsAlive(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		go holdOpen(conn)
		for i := 0; i < 6; i++ {
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(time.Second)); err != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
		goingAway(conn)
	})
	defer server.Close()

	cfg := testConfig(server)
	cfg.PingTimeout = 150 * time.Millisecond

	err := NewFeed(cfg, nil).Run(context.Background(), func(Delivery) error { return nil })
	if !errors.Is(err, ErrServerGoingAway) {
		t.Errorf("Run() = %v, want ErrServerGoingAway (pings should keep the link fresh)", err)
	}
}

func TestFeed_Run_HandlerError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"BUY","symbol":"GOLD","id":"1","ts":1}`))
		holdOpen(conn)
	})
	defer server.Close()

	errDownstream := errors.New("downstream full")
	err := NewFeed(testConfig(server), nil).Run(context.Background(), func(Delivery) error {
		return errDownstream
	})
	if !errors.Is(err, errDownstream) {
		t.Errorf("Run() = %v, want wrapped handler error", err)
	}
}

func TestFollow_Reconnects(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		n := conns.Add(1)
		frame := `{"cmd":"BUY","symbol":"GOLD","id":"first","ts":1}`
		if n > 1 {
			frame = `{"cmd":"SELL","symbol":"GOLD","id":"second","ts":2}`
		}
		conn.WriteMessage(websocket.TextMessage, []byte(frame))
		if n == 1 {
			goingAway(conn)
			return
		}
		holdOpen(conn)
	})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var ids []string
	err := Follow(ctx, testConfig(server), func(d Delivery) error {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, d.Signal.ID)
		if len(ids) == 2 {
			cancel()
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Follow() = %v, want nil after cancel", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 2 || ids[0] != "first" || ids[1] != "second" {
		t.Errorf("ids = %v, want [first second]", ids)
	}
	if got := conns.Load(); got != 2 {
		t.Errorf("connections = %d, want 2", got)
	}
}

func TestFollow_StopsOnUnauthorized(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {})
	defer server.Close()

	cfg := testConfig(server)
	cfg.Key = "wrong"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := Follow(ctx, cfg, func(Delivery) error { return nil }, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Follow() = %v, want ErrUnauthorized", err)
	}
}

func TestFollow_StopsOnHandlerError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"BUY","symbol":"GOLD","id":"1","ts":1}`))
		holdOpen(conn)
	})
	defer server.Close()

	errDownstream := errors.New("downstream full")
	err := Follow(context.Background(), testConfig(server), func(Delivery) error { return errDownstream }, nil)
	if err != errDownstream {
		t.Errorf("Follow() = %v, want the handler error itself", err)
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base    string
		channel string
		want    string
		wantErr bool
	}{
		{"http://localhost:3000", "c", "ws://localhost:3000/ws/c?key=k", false},
		{"https://hub.example.com/", "c", "wss://hub.example.com/ws/c?key=k", false},
		{"ws://localhost:3000/prefix", "c", "ws://localhost:3000/prefix/ws/c?key=k", false},
		{"http://localhost:3000", "ゆな", "ws://localhost:3000/ws/%E3%82%86%E3%81%AA?key=k", false},
		{"http://localhost:3000", "gold room", "ws://localhost:3000/ws/gold%20room?key=k", false},
		{"http://localhost:3000", "a/b", "ws://localhost:3000/ws/a%2Fb?key=k", false},
		{"ftp://host", "c", "", true},
	}

	for _, tt := range tests {
		got, err := StreamURL(tt.base, tt.channel, "k")
		if tt.wantErr {
			if err == nil {
				t.Errorf("StreamURL(%q) expected error", tt.base)
			}
			continue
		}
		if err != nil {
			t.Errorf("StreamURL(%q, %q) error: %v", tt.base, tt.channel, err)
			continue
		}
		if got != tt.want {
			t.Errorf("StreamURL(%q, %q) = %q, want %q", tt.base, tt.channel, got, tt.want)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Errorf("parse %q: %v", got, err)
			continue
		}
		if want := "/ws/" + tt.channel; !strings.HasSuffix(u.Path, want) {
			t.Errorf("decoded path = %q, want suffix %q", u.Path, want)
		}
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	if cfg.PingTimeout != 90*time.Second {
		t.Errorf("PingTimeout = %v, want 90s", cfg.PingTimeout)
	}
	if cfg.MinBackoff != time.Second || cfg.MaxBackoff != 30*time.Second {
		t.Errorf("backoff = %v..%v, want 1s..30s", cfg.MinBackoff, cfg.MaxBackoff)
	}
}

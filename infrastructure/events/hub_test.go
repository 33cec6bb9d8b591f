package events

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingObserver struct {
	mu         sync.Mutex
	clients    int
	broadcasts int
	dropped    int
}

func (o *countingObserver) ClientsChanged(n int) { o.mu.Lock(); o.clients = n; o.mu.Unlock() }
func (o *countingObserver) Broadcasted(string)   { o.mu.Lock(); o.broadcasts++; o.mu.Unlock() }
func (o *countingObserver) Dropped(string)       { o.mu.Lock(); o.dropped++; o.mu.Unlock() }

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	a := hub.Register("test")
	b := hub.Register("test")
	require.Equal(t, 2, hub.Count())

	hub.Broadcast(BookingsChanged)

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.JSONEq(t, `{"type":"bookings-changed"}`, string(msg))
		default:
			t.Fatalf("client %s got nothing", c.ID)
		}
	}
}

func TestUnregisterRemovesClientOnce(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(zap.NewNop(), 4)
	hub.SetObserver(obs)

	c := hub.Register("test")
	hub.Unregister(c)
	hub.Unregister(c)

	assert.Zero(t, hub.Count())
	_, open := <-c.Send
	assert.False(t, open)
	assert.Zero(t, obs.clients)

	// Broadcasting with nobody connected is fine.
	hub.Broadcast(BookingsChanged)
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(zap.NewNop(), 1)
	hub.SetObserver(obs)
	slow := hub.Register("test")

	done := make(chan struct{})
	go func() {
		hub.Broadcast(BookingsChanged)
		hub.Broadcast(BookingsChanged)
		hub.Broadcast(BookingsChanged)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	assert.Len(t, slow.Send, 1)
	assert.Equal(t, 2, obs.dropped)
	assert.Equal(t, 3, obs.broadcasts)
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	require.Equal(t, 1, hub.Count())

	hub.Broadcast(BookingsChanged)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}
	assert.JSONEq(t, `{"type":"bookings-changed"}`, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))

	require.NoError(t, resp.Body.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	srv := httptest.NewServer(NewWebSocketHandler(hub, nil))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast(BookingsChanged)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"bookings-changed"}`, string(msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	srv := httptest.NewServer(NewWebSocketHandler(hub, []string{"http://allowed.example"}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketWithoutAllowListIsSameOriginOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	srv := httptest.NewServer(NewWebSocketHandler(hub, nil))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{srv.URL}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestWebSocketWildcardAcceptsAnyOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	srv := httptest.NewServer(NewWebSocketHandler(hub, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), http.Header{"Origin": []string{"http://elsewhere.example"}})
	require.NoError(t, err)
	_ = conn.Close()
}

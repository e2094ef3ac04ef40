package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feedentity "stock_realtime/internal/feature/feed/domain/entity"
	"stock_realtime/internal/feature/live/broadcaster"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupServer(t *testing.T) (*httptest.Server, *broadcaster.Broadcaster) {
	t.Helper()

	b := broadcaster.New(time.Minute, 16)
	h := NewLiveHandler(b)
	r := gin.New()
	r.GET("/stream/:symbol", h.Stream)
	r.GET("/ws/:symbol", h.WebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		b.CloseAll()
		srv.Close()
	})
	return srv, b
}

// broadcastOnce は購読者が登録されるまで待ち、ティックをちょうど1回届けます。
func broadcastOnce(t *testing.T, b *broadcaster.Broadcaster, tick feedentity.Tick) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Broadcast(tick.Symbol, tick) > 0 }, time.Second, 5*time.Millisecond)
}

// waitForRemoval は購読が解除され、配信先がなくなるまで待ちます。
func waitForRemoval(t *testing.T, b *broadcaster.Broadcaster, symbol string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return b.Broadcast(symbol, feedentity.Tick{Symbol: symbol, Price: 1}) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// TestLiveHandler_Stream はSSEで接続通知とティックが届くことを検証します。
func TestLiveHandler_Stream(t *testing.T) {
	t.Parallel()

	srv, b := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/aapl", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	broadcastOnce(t, b, feedentity.Tick{Symbol: "AAPL", Price: 185.5, Volume: 3})

	var events []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") {
			events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		}
		if strings.HasPrefix(line, "data:") && strings.Contains(line, "185.5") {
			break
		}
	}
	assert.Equal(t, []string{broadcaster.EventConnected, broadcaster.EventTick}, events)

	cancel()
	waitForRemoval(t, b, "AAPL")
}

// TestLiveHandler_WebSocket はWebSocketでJSONイベントが届き、切断で購読が解除されることを検証します。
func TestLiveHandler_WebSocket(t *testing.T) {
	t.Parallel()

	srv, b := setupServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/MSFT"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var ev struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, broadcaster.EventConnected, ev.Event)

	broadcastOnce(t, b, feedentity.Tick{Symbol: "MSFT", Price: 401.25, Volume: 1})

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, broadcaster.EventTick, ev.Event)
	var tk feedentity.Tick
	require.NoError(t, json.Unmarshal(ev.Data, &tk))
	assert.Equal(t, 401.25, tk.Price)

	require.NoError(t, conn.Close())
	waitForRemoval(t, b, "MSFT")
}

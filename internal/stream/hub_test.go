package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/util"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSample(t *testing.T, conn *websocket.Conn) domain.MetricSample {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var s domain.MetricSample
	require.NoError(t, conn.ReadJSON(&s))
	return s
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub(&util.Logger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	sample := domain.MetricSample{BlockHeight: 840000, BTCPrice: 63000, Timestamp: "2024-04-20T00:00:00Z"}
	hub.Publish(sample)

	assert.Equal(t, sample, readSample(t, a))
	assert.Equal(t, sample, readSample(t, b))
}

func TestHub_NewSubscriberGetsLatest(t *testing.T) {
	hub := NewHub(&util.Logger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := domain.MetricSample{BlockHeight: 1, BTCPrice: 1, Timestamp: "t1"}
	second := domain.MetricSample{BlockHeight: 2, BTCPrice: 2, Timestamp: "t2"}
	hub.Publish(first)
	hub.Publish(second)

	conn := dial(t, srv)
	assert.Equal(t, second, readSample(t, conn))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	var counts []int
	hub := NewHub(&util.Logger{})
	hub.OnSubscribersChanged = func(n int) { counts = append(counts, n) }
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Equal(t, []int{1, 0}, counts)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(&util.Logger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

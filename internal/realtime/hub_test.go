package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

func TestHubPublish(t *testing.T) {
	hub := NewHub(utils.NewNopLogger())
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, time.Minute)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Kind: KindInventoryDeleted, ID: 42})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, KindInventoryDeleted, got.Kind)
	assert.EqualValues(t, 42, got.ID)
	assert.False(t, got.At.IsZero())

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(utils.NewNopLogger())
	assert.NotPanics(t, func() { hub.Publish(Event{Kind: KindInventoryCreated}) })
}

func TestPublishDropsClientWithFullQueue(t *testing.T) {
	hub := NewHub(utils.NewNopLogger())
	upgrader := websocket.Upgrader{}
	registered := make(chan *Client, 1)

	// the connection is registered but never served, so nothing drains its queue
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registered <- hub.Register(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var c *Client
	select {
	case c = <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}

	start := time.Now()
	for i := 0; i < sendBuffer; i++ {
		hub.Publish(Event{Kind: KindInventoryUpdated, ID: uint(i + 1)})
	}
	assert.Equal(t, 1, hub.Len())
	assert.Len(t, c.send, sendBuffer)

	hub.Publish(Event{Kind: KindInventoryUpdated, ID: 99})
	assert.Equal(t, 0, hub.Len())
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-c.done:
	default:
		t.Fatal("dropped client was not closed")
	}
}

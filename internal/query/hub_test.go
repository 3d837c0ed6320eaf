package query

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/dblock"
)

func TestHubBroadcastsStatusToSubscribedClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/progress", hub.Subscribe)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give Subscribe's goroutine time to register the client before
	// broadcasting, since registration happens on the server side.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(dblock.StatusBuilt)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `{"status":"built"}`, string(msg))
}

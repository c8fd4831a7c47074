package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/texttalk/internal/api/middleware"
	"github.com/yoockh/texttalk/internal/logger"
	"github.com/yoockh/texttalk/internal/models"
)

func TestWSHandler_StreamsNotifications(t *testing.T) {
	s := newTestServer(t, nil, stubBackend{}, &stubRepo{})
	ws := NewWSHandler(nil, logger.Discard())
	s.engine.GET("/ws", middleware.ClientSession(middleware.ClientCookie{Name: "tt_client"}, s.reg), ws.Notifications)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	w := s.reg.Get(context.Background(), testClient)
	w.Notifications.Error("already showing")

	header := http.Header{}
	header.Set("Cookie", "tt_client="+testClient)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first models.NotificationEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "show", first.Type)
	require.NotNil(t, first.Notification)
	assert.Equal(t, "already showing", first.Notification.Message)

	// the subscription is registered before the snapshot is sent
	w.Notifications.Success("next")
	var next models.NotificationEvent
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "next", next.Notification.Message)

	w.Notifications.Clear()
	var cleared models.NotificationEvent
	require.NoError(t, conn.ReadJSON(&cleared))
	assert.Equal(t, "clear", cleared.Type)
	assert.Nil(t, cleared.Notification)
}

func TestWSHandler_RejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer(t, nil, stubBackend{}, &stubRepo{})
	ws := NewWSHandler([]string{"https://app.example.com"}, logger.Discard())
	s.engine.GET("/ws", middleware.ClientSession(middleware.ClientCookie{Name: "tt_client"}, s.reg), ws.Notifications)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

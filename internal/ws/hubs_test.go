package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/scholarship_backend/internal/middleware"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

func startServer(t *testing.T, hubs *Hubs) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withCaller := func(c *gin.Context) {
		c.Set(middleware.CallerKey, c.Query("as"))
		c.Next()
	}
	r.GET("/ws/audit", withCaller, AuditHandler(hubs))
	r.GET("/ws/student", withCaller, StudentHandler(hubs))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func runHubs(t *testing.T) *Hubs {
	t.Helper()
	hubs := NewHubs()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hubs.Run(ctx)
	return hubs
}

func TestAuditStreamReceivesEvents(t *testing.T) {
	hubs := runHubs(t)
	srv := startServer(t, hubs)
	conn := dial(t, srv, "/ws/audit?as=admin")
	require.Eventually(t, func() bool { return hubs.Audit.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hubs.Emit(scholarship.Event{
		Action:     "approve_student",
		Attributes: []scholarship.Attribute{{Key: "action", Value: "approve_student"}, {Key: "student", Value: "alice"}},
		Subject:    "alice",
		Student:    &scholarship.Student{Approved: true},
	})

	var got AuditPayload
	readJSON(t, conn, &got)
	require.Equal(t, "approve_student", got.Action)
	require.Equal(t, "alice", got.Subject)
	require.NotNil(t, got.Student)
	require.True(t, got.Student.Approved)
	require.Len(t, got.Attributes, 2)
}

func TestStudentStreamIsScopedToCaller(t *testing.T) {
	hubs := runHubs(t)
	srv := startServer(t, hubs)
	alice := dial(t, srv, "/ws/student?as=alice")
	bob := dial(t, srv, "/ws/student?as=bob")
	require.Eventually(t, func() bool { return hubs.Student.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	hubs.Emit(scholarship.Event{
		Action:  "claim_scholarship",
		Subject: "alice",
		Student: &scholarship.Student{Approved: true, Claimed: true},
	})

	var msg StudentMessage
	readJSON(t, alice, &msg)
	require.Equal(t, "status_update", msg.Type)
	require.Equal(t, "claim_scholarship", msg.Action)
	require.True(t, msg.Claimed)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	require.Error(t, err)
}

func TestStudentStreamRequiresCaller(t *testing.T) {
	hubs := runHubs(t)
	srv := startServer(t, hubs)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/student"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}

func TestEmitDoesNotBlockWithoutRunner(t *testing.T) {
	hubs := NewHubs()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*sendBufferSize; i++ {
			hubs.Emit(scholarship.Event{Action: "register_student", Subject: "alice", Student: &scholarship.Student{}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked")
	}
}

func TestNilHubsEmit(t *testing.T) {
	var hubs *Hubs
	require.NotPanics(t, func() { hubs.Emit(scholarship.Event{Action: "instantiate"}) })
}

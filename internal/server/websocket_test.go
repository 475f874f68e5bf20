package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/server"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

const wsReadTimeout = time.Second

func dialWebSocket(
	t *testing.T, env *testServerEnv, query string,
) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	ts := httptest.NewServer(env.Router)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return ts, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *api.SocketOutbound {
	t.Helper()
	require.NoError(t,
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout)))
	var frame api.SocketOutbound
	require.NoError(t, conn.ReadJSON(&frame))
	return &frame
}

func TestWebSocketConversation(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		env.LoadScript(t, `
c:
  hello:
    trigger: hi
    message: hi back
`)
		_, conn := dialWebSocket(t, env, "?chat=room-1&sender=user-1")

		payload, err := json.Marshal(api.SocketInbound{Text: "hi"})
		require.NoError(t, err)
		require.NoError(t,
			conn.WriteMessage(websocket.TextMessage, payload))

		frame := readFrame(t, conn)
		assert.Equal(t, api.SocketFrameMessage, frame.Type)
		assert.Equal(t, "hi back", frame.Text)
		assert.NotZero(t, frame.MessageID)
	})
}

func TestWebSocketInlineCallback(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		env.LoadScript(t, `
c:
  menu:
    trigger: start
    message: pick
    keyboard:
      inline:
        - text: Go
          answer: away we go
          goto: c.confirmed
  confirmed:
    message: confirmed!
    validate:
      t: ((self))
`)
		_, conn := dialWebSocket(t, env, "?chat=room-2")

		payload, err := json.Marshal(api.SocketInbound{Text: "start"})
		require.NoError(t, err)
		require.NoError(t,
			conn.WriteMessage(websocket.TextMessage, payload))

		menu := readFrame(t, conn)
		require.NotNil(t, menu.Keyboard)
		require.Len(t, menu.Keyboard.Buttons, 1)
		key := menu.Keyboard.Buttons[0][0].Callback
		require.NotEmpty(t, key)

		press, err := json.Marshal(api.SocketInbound{
			Callback: key,
			QueryID:  "q-9",
		})
		require.NoError(t, err)
		require.NoError(t,
			conn.WriteMessage(websocket.TextMessage, press))

		// the answer frame arrives before the step render
		answer := readFrame(t, conn)
		assert.Equal(t, api.SocketFrameAnswer, answer.Type)
		assert.Equal(t, "q-9", answer.QueryID)
		assert.Equal(t, "away we go", answer.Answer)

		confirmed := readFrame(t, conn)
		assert.Equal(t, api.SocketFrameMessage, confirmed.Type)
		assert.Equal(t, "confirmed!", confirmed.Text)
	})
}

func TestWebSocketRequiresChat(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		w := env.do(httptest.NewRequest("GET", "/ws", nil))
		assert.Equal(t, 400, w.Code)
	})
}

func TestSocketBridgeSendToMissingPeer(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		bridge, ok := env.Engine.Bridge(server.SocketBridgeName)
		require.True(t, ok)
		_, err := bridge.Send(t.Context(), &api.Parcel{
			PeerID:  "ghost",
			Message: "anyone there?",
		})
		assert.ErrorIs(t, err, server.ErrPeerNotConnected)
	})
}

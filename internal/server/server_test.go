package server_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/assert/helpers"
	"github.com/mvoevodskiy/botcms/internal/server"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

type testServerEnv struct {
	*helpers.TestEnv
	Server *server.Server
	Router *gin.Engine
}

func withTestServer(t *testing.T, fn func(*testServerEnv)) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := helpers.NewTestEnv(t)
	srv := server.NewServer(slog.New(slog.DiscardHandler), env.Engine)
	fn(&testServerEnv{
		TestEnv: env,
		Server:  srv,
		Router:  srv.SetupRoutes(),
	})
}

func (e *testServerEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		env.LoadScript(t, `
c:
  hello:
    trigger: hi
    message: hi back
`)
		w := env.do(httptest.NewRequest("GET", "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var health api.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, "ok", health.Status)
		assert.NotEmpty(t, health.Version)
		assert.Equal(t, 1, health.Steps)
		assert.Contains(t, health.Bridges, "memory")
		assert.Contains(t, health.Bridges, server.SocketBridgeName)
	})
}

func TestWebhookUpdate(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		env.LoadScript(t, `
c:
  hello:
    trigger: hi
    message: hi back
`)
		payload := `{
			"text": "hi",
			"chat": {"id": "chat-9", "type": "user"},
			"sender": {"id": "user-9", "username": "niner"},
			"message_id": 5
		}`
		req := httptest.NewRequest("POST", "/webhook/memory",
			bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		w := env.do(req)
		require.Equal(t, http.StatusOK, w.Code)

		var accepted api.UpdateAccepted
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
		assert.Equal(t, "accepted", accepted.Status)
		assert.NotEmpty(t, accepted.UID)

		sent := env.Bridge.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "hi back", sent[0].Message)
		assert.Equal(t, "chat-9", sent[0].PeerID)
	})
}

func TestWebhookUnknownBridge(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		req := httptest.NewRequest("POST", "/webhook/nowhere",
			bytes.NewReader([]byte(`{}`)))
		w := env.do(req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWebhookInvalidJSON(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		req := httptest.NewRequest("POST", "/webhook/memory",
			bytes.NewReader([]byte(`{not json`)))
		w := env.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhookMissingIdentity(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		req := httptest.NewRequest("POST", "/webhook/memory",
			bytes.NewReader([]byte(`{"text": "hi"}`)))
		w := env.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "chat.id")
	})
}

func TestWebhookQueryPayload(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		env.LoadScript(t, `
c:
  target:
    message: jumped
    validate:
      t: ((self))
`)
		payload := `{
			"chat": {"id": "chat-9"},
			"sender": {"id": "user-9"},
			"query": {"id": "q-55", "path": "c.target"}
		}`
		req := httptest.NewRequest("POST", "/webhook/memory",
			bytes.NewReader([]byte(payload)))
		w := env.do(req)
		require.Equal(t, http.StatusOK, w.Code)

		sent := env.Bridge.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "jumped", sent[0].Message)
	})
}

func TestCORSPreflight(t *testing.T) {
	withTestServer(t, func(env *testServerEnv) {
		req := httptest.NewRequest("OPTIONS", "/health", nil)
		w := env.do(req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*",
			w.Header().Get("Access-Control-Allow-Origin"))
	})
}

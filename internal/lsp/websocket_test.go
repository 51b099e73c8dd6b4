package lsp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/autoheader/internal/testutil"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

func newTestWebSocketHandler(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewWebSocketHandler(context.Background(), autoheader.Options{
		Settings: testSettings(),
		Logger:   testutil.DiscardHandler(),
	}, "2.0.0")
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketHandler_Health(t *testing.T) {
	srv := newTestWebSocketHandler(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2.0.0", body["version"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestWebSocketHandler_Initialize(t *testing.T) {
	srv := newTestWebSocketHandler(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + WebSocketPath

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]any{"capabilities": map[string]any{}},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
			Capabilities struct {
				ExecuteCommandProvider struct {
					Commands []string `json:"commands"`
				} `json:"executeCommandProvider"`
			} `json:"capabilities"`
		} `json:"result"`
	}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, ServerName, resp.Result.ServerInfo.Name)
	assert.Equal(t, "2.0.0", resp.Result.ServerInfo.Version)
	assert.Equal(t, []string{CommandInsertHeader}, resp.Result.Capabilities.ExecuteCommandProvider.Commands)
}

func TestWebSocketHandler_RejectsPlainHTTP(t *testing.T) {
	srv := newTestWebSocketHandler(t)

	resp, err := http.Get(srv.URL + WebSocketPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+WebSocketPath, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketTranslate(t *testing.T) {
	tr := &fakeTranslator{errs: []error{nil, errors.New("upstream 503")}}
	ts := newTestServer(t, Dependencies{Translator: tr}, Config{WebSocket: WebSocketConfig{Enabled: true}})
	conn := dialWS(t, ts.URL+"/ws/translate")

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "Hello", "dest": "hi"}))
	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "नमस्ते", reply["translated_text"])

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "Hello", "dest": "hi"}))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply["error"], "upstream 503")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply["error"], "invalid request")

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "Hello", "dest": "hi"}))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "नमस्ते", reply["translated_text"])
}

func TestWebSocketSpeak(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{WebSocket: WebSocketConfig{Enabled: true, Prefix: "/live"}})
	conn := dialWS(t, ts.URL+"/live/speak")

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "నమస్కారం", "lang": "te"}))
	var reply wsSpeakReply
	require.NoError(t, conn.ReadJSON(&reply))

	assert.True(t, reply.OK)
	assert.Equal(t, "audio/mpeg", reply.Mime)
	assert.Equal(t, "te", reply.Voice)
	audio, err := base64.StdEncoding.DecodeString(reply.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-te"), audio)
}

func TestWebSocketDisabled(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/translate", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

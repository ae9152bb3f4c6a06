package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS_DefaultAllowsAnyOrigin(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/translate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	origin := resp.Header.Get("Access-Control-Allow-Origin")
	assert.Contains(t, []string{"*", "https://example.org"}, origin)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_SimpleRequestCarriesHeader(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, []string{"*", "http://localhost:5173"}, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	cfg := Config{CORS: CORSConfig{
		AllowedOrigins:   []string{"https://app.example.org"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}}
	ts := newTestServer(t, Dependencies{}, cfg)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://app.example.org")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "https://app.example.org", resp2.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp2.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORSConfig_AllowsOrigin(t *testing.T) {
	assert.True(t, DefaultCORSConfig().allowsOrigin("https://any.example"))
	restricted := CORSConfig{AllowedOrigins: []string{"https://a.example"}}
	assert.True(t, restricted.allowsOrigin("https://a.example"))
	assert.True(t, restricted.allowsOrigin(""))
	assert.False(t, restricted.allowsOrigin("https://b.example"))
}

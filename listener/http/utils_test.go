package http

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveHopByHopHeaders(t *testing.T) {
	header := http.Header{}
	header.Set("Proxy-Connection", "keep-alive")
	header.Set("Proxy-Authorization", "Basic dXNlcjpwYXNz")
	header.Set("Transfer-Encoding", "chunked")
	header.Set("Connection", "X-Custom-Hop")
	header.Set("X-Custom-Hop", "value")
	header.Set("Content-Type", "text/plain")

	removeHopByHopHeaders(header)

	assert.Empty(t, header.Get("Proxy-Connection"))
	assert.Empty(t, header.Get("Proxy-Authorization"))
	assert.Empty(t, header.Get("Transfer-Encoding"))
	assert.Empty(t, header.Get("Connection"))
	assert.Empty(t, header.Get("X-Custom-Hop"))
	assert.Equal(t, "text/plain", header.Get("Content-Type"))
}

func TestRemoveExtraHTTPHostPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com:80/index", nil)
	removeExtraHTTPHostPort(req)
	assert.Equal(t, "example.com", req.Host)
	assert.Equal(t, "example.com", req.URL.Host)

	req = httptest.NewRequest(http.MethodGet, "http://example.com:8080/index", nil)
	removeExtraHTTPHostPort(req)
	assert.Equal(t, "example.com:8080", req.Host)
}

func TestParseBasicProxyAuthorization(t *testing.T) {
	credential := base64.StdEncoding.EncodeToString([]byte("user:pass"))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	assert.Empty(t, parseBasicProxyAuthorization(req))

	req.Header.Set("Proxy-Authorization", "Basic "+credential)
	assert.Equal(t, credential, parseBasicProxyAuthorization(req))

	req.Header.Set("Proxy-Authorization", "Bearer token")
	assert.Empty(t, parseBasicProxyAuthorization(req))
}

func TestDecodeBasicProxyAuthorization(t *testing.T) {
	credential := base64.StdEncoding.EncodeToString([]byte("user:pass"))

	user, pass, err := decodeBasicProxyAuthorization(credential)
	assert.NoError(t, err)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)

	_, _, err = decodeBasicProxyAuthorization("!!not-base64!!")
	assert.Error(t, err)

	noColon := base64.StdEncoding.EncodeToString([]byte("userpass"))
	_, _, err = decodeBasicProxyAuthorization(noColon)
	assert.Error(t, err)
}

func TestIsUpgradeRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	assert.False(t, isUpgradeRequest(req))

	req.Header.Set("Connection", "keep-alive, Upgrade")
	assert.True(t, isUpgradeRequest(req))
}

package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "203.0.113.9", ip)
}

func TestExtractClientIP_TrustedProxyUsesForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "198.51.100.1", ip)
}

func TestExtractClientIP_NoConfigFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "192.0.2.7:8080"
	r.Header.Set("X-Real-IP", "198.51.100.1")

	assert.Equal(t, "192.0.2.7", ExtractClientIP(r, nil))
}

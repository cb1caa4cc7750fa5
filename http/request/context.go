package request //import "github.com/johnyfernandes/shlf-sync/http/request"

import (
	"net"
	"net/http"
	"strings"
)

type ContextKey int

const (
	ClientIPContextKey ContextKey = iota
	PeerDeviceContextKey
	IsPeerAuthenticatedContextKey
)

func getContextStringValue(r *http.Request, key ContextKey) string {
	if v := r.Context().Value(key); v != nil {
		if value, valid := v.(string); valid {
			return value
		}
	}
	return ""
}

// GetPeerDevice returns the authenticated peer's device tag stored in the context.
func GetPeerDevice(r *http.Request) string {
	return getContextStringValue(r, PeerDeviceContextKey)
}

// IsPeerAuthenticated reports whether the peer JWT interceptor accepted the request.
func IsPeerAuthenticated(r *http.Request) bool {
	if v := r.Context().Value(IsPeerAuthenticatedContextKey); v != nil {
		if value, valid := v.(bool); valid {
			return value
		}
	}
	return false
}

// FindClientIP returns the client's originating IP, honoring forwarding headers.
func FindClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware // import "github.com/johnyfernandes/shlf-sync/middleware"

import (
	"context"
	"net/http"
	"strings"

	"github.com/johnyfernandes/shlf-sync/api/auth"
	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/http/request"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/store"
	"go.uber.org/zap"
)

type Middleware struct {
	store *store.Store
}

func NewMiddleware(store *store.Store) *Middleware {
	return &Middleware{store: store}
}

func (m *Middleware) HandleCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "X-Auth-Token, Authorization, Content-Type, Accept")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "7200")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) LoggingRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Incoming request",
			zap.String("client_ip", request.FindClientIP(r)),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
		)
		next.ServeHTTP(w, r)
	})
}

// PeerAuthInterceptor validates the peer JWT on sync routes. The token is
// signed with the shared pairing secret, so only the paired device passes.
func (m *Middleware) PeerAuthInterceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := request.FindClientIP(r)
		accessToken := getAccessToken(r)
		if accessToken == "" {
			log.Debug("Rejecting sync request with no peer token",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
			)
			response.Unauthorized(w, r)
			return
		}

		device, err := auth.ValidatePeerToken(accessToken, []byte(config.Opts.PeerSecret))
		if err != nil {
			log.Debug("Failed to authenticate peer",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
				zap.Error(err),
			)
			response.Unauthorized(w, r)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, request.PeerDeviceContextKey, string(device))
		ctx = context.WithValue(ctx, request.IsPeerAuthenticatedContextKey, true)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getAccessToken(r *http.Request) string {
	authorizationHeaders := r.Header.Get("Authorization")
	if authorizationHeaders != "" {
		splitToken := strings.Split(authorizationHeaders, "Bearer ")
		if len(splitToken) == 2 {
			return splitToken[1]
		}
	}
	return ""
}

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Header names accepted for the API key.
const (
	HeaderAPIKey       = "api_key"
	HeaderAPIKeyLegacy = "X-API-Key"
)

var errUnauthorized = errors.New("unauthorized")

// Security authenticates requests by API key. Keys are stored as the hex
// HMAC-SHA256 of the raw key under a server-side pepper.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security backed by apikeys.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Hash returns the stored form of a raw key.
func (s *Security) Hash(key string) string {
	return hex.EncodeToString(s.mac(key))
}

func (s *Security) mac(key string) []byte {
	m := hmac.New(sha256.New, s.pepper)
	m.Write([]byte(key))
	return m.Sum(nil)
}

// Authenticate resolves a raw key to its owner.
func (s *Security) Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	sum := s.mac(key)
	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}
	// The row came back by hash; compare again in constant time so a stale
	// or mismatched row never authenticates.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

func keyFrom(r *http.Request) string {
	if k := r.Header.Get(HeaderAPIKey); k != "" {
		return k
	}
	return r.Header.Get(HeaderAPIKeyLegacy)
}

func (s *Security) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, required bool) {
	key := keyFrom(r)
	if key == "" {
		if required {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "api key required")
			return
		}
		next.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	info, err := s.Authenticate(ctx, key)
	switch {
	case errors.Is(err, errUnauthorized):
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	case err != nil:
		zctx.From(ctx).Error("Authenticate", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ctx = auth.WithKey(ctx, info)
	ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("user_id", info.UserID)))
	next.ServeHTTP(w, r.WithContext(ctx))
}

// Require rejects requests without a valid key.
func (s *Security) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.authenticate(w, r, next, true)
	})
}

// Optional authenticates when a key is present and lets anonymous requests
// through. A present but wrong key is still rejected.
func (s *Security) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.authenticate(w, r, next, false)
	})
}

// RequireScope rejects authenticated callers whose key lacks scope. It must
// run after Require.
func (s *Security) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, ok := auth.FromContext(r.Context())
			if !ok || !k.HasScope(scope) {
				httpmiddleware.WriteError(w, http.StatusForbidden, "missing scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// KeySetFetcher loads the signing keys published at url.
type KeySetFetcher func(ctx context.Context, url string) (jwk.Set, error)

func fetchRemote(ctx context.Context, url string) (jwk.Set, error) {
	return jwk.Fetch(ctx, url)
}

// JWTVerifier checks tokens against a JWKS endpoint. The key set is refetched at
// most once per MinInterval; a failed refresh keeps serving the last good set.
type JWTVerifier struct {
	mu sync.RWMutex

	cfg   config.IdP
	fetch KeySetFetcher

	keys      jwk.Set
	fetchedAt time.Time
	now       func() time.Time
}

// NewJWTVerifier creates a verifier and loads the key set once, so a misconfigured IdP fails startup.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	return newVerifier(ctx, cfg, fetchRemote)
}

func newVerifier(ctx context.Context, cfg config.IdP, fetch KeySetFetcher) (*JWTVerifier, error) {
	v := &JWTVerifier{cfg: cfg, fetch: fetch, now: time.Now}
	if _, err := v.keySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) fresh() bool {
	return v.keys != nil && v.now().Sub(v.fetchedAt) < v.cfg.MinInterval
}

func (v *JWTVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.RLock()
	if v.fresh() {
		set := v.keys
		v.mu.RUnlock()
		return set, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fresh() {
		return v.keys, nil
	}
	set, err := v.fetch(ctx, v.cfg.JwksURL)
	if err != nil {
		if v.keys != nil {
			return v.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.cfg.JwksURL, err)
	}
	v.keys = set
	v.fetchedAt = v.now()
	return set, nil
}

// Verify parses the token, checks its signature, lifetime, issuer and authorized party.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithClaimValue("azp", v.cfg.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}

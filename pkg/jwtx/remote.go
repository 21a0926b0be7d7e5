package jwtx

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrKeyFetch reports a failed JWKS refresh. It is a hard verification
// failure: callers must not fall back to a stale or absent key.
var ErrKeyFetch = errors.New("jwtx: key set fetch failed")

const (
	// DefaultRemoteKeySetTTL is how long fetched provider keys are trusted
	// before the next lookup refetches.
	DefaultRemoteKeySetTTL = 10 * time.Minute

	// DefaultRemoteKeySetMaxKeys bounds how many provider keys are cached.
	// Apple publishes three; a handful of slots covers rotation overlap.
	DefaultRemoteKeySetMaxKeys = 5
)

// RemoteKeySet caches the published signing keys of an external identity
// provider (a JWKS endpoint). Lookups are served from memory; a kid miss or
// an expired snapshot triggers a refetch over the injected HTTP client.
//
// Construct one per provider and inject it; there is deliberately no global
// instance.
type RemoteKeySet struct {
	url     string
	ttl     time.Duration
	maxKeys int
	client  *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	order     []string // insertion order, for eviction
	fetchedAt time.Time
}

// NewRemoteKeySet builds a RemoteKeySet for the given JWKS URL. The client
// must have a bounded timeout; pass nil for a 10s default. ttl<=0 and
// maxKeys<=0 select the package defaults.
func NewRemoteKeySet(url string, maxKeys int, ttl time.Duration, client *http.Client) *RemoteKeySet {
	if ttl <= 0 {
		ttl = DefaultRemoteKeySetTTL
	}
	if maxKeys <= 0 {
		maxKeys = DefaultRemoteKeySetMaxKeys
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteKeySet{
		url:     url,
		ttl:     ttl,
		maxKeys: maxKeys,
		client:  client,
		keys:    make(map[string]*rsa.PublicKey),
	}
}

// Key returns the provider public key for kid. A cached, fresh key is served
// directly; otherwise the key set is refetched once. An unknown kid after a
// successful refetch is ErrNoKey, a failed refetch is ErrKeyFetch.
func (r *RemoteKeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pk, ok := r.keys[kid]; ok && time.Since(r.fetchedAt) < r.ttl {
		return pk, nil
	}

	if err := r.refetchLocked(ctx); err != nil {
		return nil, err
	}

	if pk, ok := r.keys[kid]; ok {
		return pk, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrNoKey, kid)
}

// refetchLocked replaces the cached snapshot from the remote endpoint.
// Caller holds r.mu.
func (r *RemoteKeySet) refetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrKeyFetch, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	order := make([]string, 0, len(jwks.Keys))
	for _, j := range jwks.Keys {
		if j.Kty != "RSA" {
			continue // providers may publish key types we never verify with
		}
		pk, err := ParseRSAJWK(j)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrKeyFetch, err)
		}
		if len(order) == r.maxKeys {
			break
		}
		keys[j.Kid] = pk
		order = append(order, j.Kid)
	}

	r.keys = keys
	r.order = order
	r.fetchedAt = time.Now()
	return nil
}

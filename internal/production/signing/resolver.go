// Package signing turns durable object references into time-limited URLs,
// re-signing only when a cached URL is close to expiry. The cache lives on
// the owning document, so one re-sign pays off for every later reader.
package signing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

const (
	DefaultTTL = 60 * time.Minute
	// RefreshThreshold — запас до истечения, после которого URL перевыпускается.
	DefaultRefreshThreshold = 10 * time.Minute

	durableScheme = "gs://"
)

// Signer issues a fresh time-limited URL for a durable reference.
type Signer interface {
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, time.Time, error)
}

type Resolver struct {
	signer    Signer
	ttl       time.Duration
	threshold time.Duration
	now       func() time.Time
}

func NewResolver(signer Signer, ttl, threshold time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if threshold <= 0 || threshold >= ttl {
		threshold = DefaultRefreshThreshold
	}
	return &Resolver{
		signer:    signer,
		ttl:       ttl,
		threshold: threshold,
		now:       time.Now,
	}
}

// Resolve returns an externally fetchable URL for ref. A cached entry is
// reused while now < expiry - threshold; otherwise a fresh URL is generated
// and the cache entry overwritten, with changed=true telling the caller to
// persist the updated cache back onto the owning entity. References that are
// not durable (already plain URLs) pass through unmodified.
func (r *Resolver) Resolve(ctx context.Context, ref string, cache models.SignedURLMap) (string, bool, error) {
	if ref == "" || !strings.HasPrefix(ref, durableScheme) {
		return ref, false, nil
	}

	if entry, ok := cache[ref]; ok {
		if r.now().Before(entry.ExpiresAt.Add(-r.threshold)) {
			return entry.URL, false, nil
		}
	}

	url, expiresAt, err := r.signer.SignedURL(ctx, ref, r.ttl)
	if err != nil {
		return "", false, fmt.Errorf("sign %s: %w", ref, err)
	}

	cache[ref] = models.SignedURL{URL: url, ExpiresAt: expiresAt}
	return url, true, nil
}

// ResolveAll resolves every non-empty ref in place and reports whether the
// cache changed at all. Used when a whole document is read back to a client.
func (r *Resolver) ResolveAll(ctx context.Context, cache models.SignedURLMap, refs ...*string) (bool, error) {
	changed := false
	for _, ref := range refs {
		if ref == nil || *ref == "" {
			continue
		}
		url, c, err := r.Resolve(ctx, *ref, cache)
		if err != nil {
			return changed, err
		}
		*ref = url
		changed = changed || c
	}
	return changed, nil
}

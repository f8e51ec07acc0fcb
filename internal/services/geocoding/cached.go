package geocoding

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/killallgit/route-planner-api/internal/services/cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
)

const keyPrefix = "geocode:"

// CachedGeocoder decorates a Geocoder with a result cache. Concurrent
// lookups of the same normalized query share one upstream call.
type CachedGeocoder struct {
	next        Geocoder
	cache       cache.Cache
	ttl         time.Duration
	callTimeout time.Duration
	group       singleflight.Group
	log         *slog.Logger
}

// NewCachedGeocoder wraps next. callTimeout bounds the shared upstream call,
// which outlives any single cancelled caller so its result can be cached.
func NewCachedGeocoder(next Geocoder, c cache.Cache, ttl, callTimeout time.Duration, log *slog.Logger) *CachedGeocoder {
	if log == nil {
		log = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &CachedGeocoder{
		next:        next,
		cache:       c,
		ttl:         ttl,
		callTimeout: callTimeout,
		log:         log.With("component", "geocode_cache"),
	}
}

// NormalizeQuery folds a query to its cache identity
func NormalizeQuery(text string) string {
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Geocode returns cached places for text or resolves them through the
// wrapped geocoder. Errors are never cached.
func (g *CachedGeocoder) Geocode(ctx context.Context, text string) ([]Place, error) {
	normalized := NormalizeQuery(text)
	if normalized == "" {
		return []Place{}, nil
	}
	key := keyPrefix + normalized

	if data, ok := g.cache.Get(ctx, key); ok {
		var places []Place
		if err := json.Unmarshal(data, &places); err == nil {
			return places, nil
		}
		g.log.Warn("dropping undecodable cache entry", "key", key)
		_ = g.cache.Delete(ctx, key)
	}

	ch := g.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callTimeout)
		defer cancel()

		places, err := g.next.Geocode(callCtx, text)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(places); err == nil {
			if err := g.cache.Set(callCtx, key, data, g.ttl); err != nil {
				g.log.Warn("failed to cache geocode result", "key", key, "error", err)
			}
		}
		return places, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		places := res.Val.([]Place)
		out := make([]Place, len(places))
		copy(out, places)
		return out, nil
	}
}

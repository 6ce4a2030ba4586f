package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dtb-digital/prospect-agent/internal/store"
	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

// ProfileCache keeps fetched profile documents in the database when a store
// is set. The in-memory layer exists only on the per-run copy returned by
// forRun, so concurrent runs share nothing but the store. A nil
// *ProfileCache always fetches.
type ProfileCache struct {
	mem   *cache.Cache
	store store.Store
	ttl   time.Duration
}

// NewProfileCache returns a cache with the given TTL. st may be nil.
func NewProfileCache(st store.Store, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		return nil
	}
	return &ProfileCache{store: st, ttl: ttl}
}

// forRun returns a copy with its own in-memory layer. The layer has no
// janitor; it is dropped with the run.
func (c *ProfileCache) forRun() *ProfileCache {
	if c == nil {
		return nil
	}
	return &ProfileCache{
		mem:   cache.New(c.ttl, 0),
		store: c.store,
		ttl:   c.ttl,
	}
}

// Fetch returns the profile for url. fetched reports whether the
// collaborator was called.
func (c *ProfileCache) Fetch(ctx context.Context, url string, client linkedin.Client) (p *linkedin.Profile, fetched bool, err error) {
	if c == nil {
		p, err = client.GetProfile(ctx, url)
		return p, true, err
	}

	if c.mem != nil {
		if v, ok := c.mem.Get(url); ok {
			cp := *v.(*linkedin.Profile)
			return &cp, false, nil
		}
	}

	if c.store != nil {
		if p := c.load(ctx, url); p != nil {
			c.remember(url, p)
			cp := *p
			return &cp, false, nil
		}
	}

	p, err = client.GetProfile(ctx, url)
	if err != nil {
		return nil, true, err
	}
	c.remember(url, p)
	c.save(ctx, url, p)

	cp := *p
	return &cp, true, nil
}

func (c *ProfileCache) remember(url string, p *linkedin.Profile) {
	if c.mem != nil {
		c.mem.Set(url, p, cache.DefaultExpiration)
	}
}

func (c *ProfileCache) load(ctx context.Context, url string) *linkedin.Profile {
	data, err := c.store.GetCachedProfile(ctx, url)
	if err != nil {
		zap.L().Warn("pipeline: profile cache read failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var p linkedin.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		zap.L().Warn("pipeline: profile cache entry unreadable", zap.String("url", url), zap.Error(err))
		return nil
	}
	return &p
}

func (c *ProfileCache) save(ctx context.Context, url string, p *linkedin.Profile) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(p)
	if err == nil {
		err = c.store.SetCachedProfile(ctx, url, data, c.ttl)
	}
	if err != nil {
		zap.L().Warn("pipeline: profile cache write failed", zap.String("url", url), zap.Error(eris.Wrap(err, "save profile")))
	}
}

// Len reports how many profiles are held in memory.
func (c *ProfileCache) Len() int {
	if c == nil || c.mem == nil {
		return 0
	}
	return c.mem.ItemCount()
}

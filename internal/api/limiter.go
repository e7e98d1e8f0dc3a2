package api

import (
	"net"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per client address. Buckets of
// clients that stay idle past the ttl are dropped.
type clientLimiters struct {
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
}

func newClientLimiters(limit rate.Limit, burst int, ttl time.Duration) *clientLimiters {
	return &clientLimiters{buckets: cache.New(ttl, 2*ttl), limit: limit, burst: burst}
}

func (c *clientLimiters) allow(r *http.Request) bool {
	return c.get(clientKey(r)).Allow()
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	if v, ok := c.buckets.Get(key); ok {
		c.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(c.limit, c.burst)
	if err := c.buckets.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost the race to a concurrent request from the same client
		if v, ok := c.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// clientKey is the remote host without its port. All callers share the one
// configured api key, so the key cannot tell clients apart.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

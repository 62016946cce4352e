package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// clients keeps one token bucket per remote address.
type clients struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration // idle clients older than this are dropped
	m         map[string]*client
	lastPrune time.Time
	clk       clock.Clock
}

func newClients(perMin, burst int, ttl time.Duration, clk clock.Clock) *clients {
	if burst < 1 {
		burst = 1
	}
	return &clients{
		limit: rate.Limit(float64(perMin) / 60),
		burst: burst,
		ttl:   ttl,
		m:     make(map[string]*client),
		clk:   clk,
	}
}

// prune drops idle clients; callers hold c.mu.
func (c *clients) prune(now time.Time) {
	if now.Sub(c.lastPrune) < c.ttl {
		return
	}
	for k, cl := range c.m {
		if now.Sub(cl.seen) >= c.ttl {
			delete(c.m, k)
		}
	}
	c.lastPrune = now
}

// reserve takes a token for key. When none is available it returns the wait
// until the next one.
func (c *clients) reserve(key string) (bool, time.Duration) {
	now := c.clk.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(now)
	cl := c.m[key]
	if cl == nil {
		cl = &client{lim: rate.NewLimiter(c.limit, c.burst)}
		c.m[key] = cl
	}
	cl.seen = now
	if cl.lim.AllowN(now, 1) {
		return true, 0
	}
	r := cl.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// RateLimit limits each client address to reqPerMin requests per minute
// with the given burst. A non-positive rate disables limiting.
func RateLimit(reqPerMin, burst int) func(http.Handler) http.Handler {
	return rateLimit(reqPerMin, burst, clock.New())
}

func rateLimit(reqPerMin, burst int, clk clock.Clock) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := newClients(reqPerMin, burst, 10*time.Minute, clk)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := c.reserve(clientIP(r))
			if !ok {
				secs := int(wait.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeErr(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, for a watch behind a proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

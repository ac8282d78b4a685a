package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
)

// limiterIdleExpiry is how long an idle client's limiter is kept.
const limiterIdleExpiry = 10 * time.Minute

// RateLimiter throttles requests per client IP with a token bucket.
// A client gets a burst of perMinute requests which refills evenly over a minute.
//
// The client is the socket peer. Forwarded headers are only read when the
// peer is one of the trusted proxies, so a direct caller cannot pick its own
// key by sending X-Forwarded-For.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  *cache.Cache
	perMinute int
	trusted   []netip.Prefix
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int, trustedProxies ...netip.Prefix) *RateLimiter {
	return &RateLimiter{
		limiters:  cache.New(limiterIdleExpiry, limiterIdleExpiry),
		perMinute: perMinute,
		trusted:   trustedProxies,
	}
}

func (l *RateLimiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(client); ok {
		limiter := v.(*rate.Limiter)
		// Touch so active clients are not expired
		l.limiters.SetDefault(client, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
	l.limiters.SetDefault(client, limiter)
	return limiter
}

// Handler returns 429 Too Many Requests with a Retry-After header once a
// client has used up its budget.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if l.perMinute <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := l.clientIP(r)
		limiter := l.limiterFor(client)

		if !limiter.Allow() {
			retryAfter := limiter.Reserve()
			delay := retryAfter.Delay()
			retryAfter.Cancel()

			logger.L.Warn("Rate limit exceeded", "client", sanitize(client), "path", sanitize(r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(int(delay.Round(time.Second)/time.Second)+1))
			response.RespondError(w, http.StatusTooManyRequests, "too many requests", "try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the socket peer address, or the forwarded client address
// when the peer is a trusted proxy. X-Forwarded-For is read right to left and
// the first hop that is not itself a trusted proxy wins.
func (l *RateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !l.isTrusted(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := host
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = addr.Unmap().String()
			if !l.isTrusted(addr.Unmap()) {
				break
			}
		}
		return client
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return host
}

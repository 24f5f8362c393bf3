package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/logging"
	"github.com/dmitrijs2005/farmtrack/internal/server/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// principalKey is the gin context key the principal is also stored under.
const principalKey = "principal"

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Access authenticates bearer tokens. Public routes pass through untouched.
// Requests without a bearer token continue anonymously and Authorize
// decides. A token that fails authentication ends the request with 401,
// whatever the reason.
func Access(authn Authenticator, policy *auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policy.IsPublic(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			c.Next()
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Set(principalKey, principal)
		c.Next()
	}
}

// Authorize applies the route policy to the principal Access attached.
func Authorize(policy *auth.Policy, m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *auth.Principal
		if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
			principal = &p
		}

		decision := policy.Evaluate(c.Request.Method, c.Request.URL.Path, principal)
		if m != nil {
			m.observeDecision(decision.String())
		}

		switch decision {
		case auth.Allow:
			c.Next()
		case auth.DenyUnauthenticated:
			abortWithCode(c, http.StatusUnauthorized, codeUnauthenticated)
		default:
			abortWithCode(c, http.StatusForbidden, codeForbidden)
		}
	}
}

// RequestLogger logs one line per request. Health and metrics scrapes are
// skipped.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 && status >= http.StatusInternalServerError {
			args = append(args, "error", c.Errors.Last().Error())
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			l.Error(ctx, "request completed", args...)
		case status >= http.StatusBadRequest:
			l.Warn(ctx, "request completed", args...)
		default:
			l.Info(ctx, "request completed", args...)
		}
	}
}

// Recovery turns a handler panic into a 500 with the standard error body.
func Recovery(l logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		l.Error(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		abortWithCode(c, http.StatusInternalServerError, codeInternal)
	})
}

// ipLimiter is a token bucket per client IP. Buckets idle longer than ttl
// are dropped on a later call.
type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*ipBucket
	swept   time.Time
	now     func() time.Time
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     5 * time.Minute,
		buckets: make(map[string]*ipBucket),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// RateLimit limits requests per client IP with a token bucket refilled at
// perSecond and holding up to burst tokens. A non-positive rate disables it.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	l := newIPLimiter(perSecond, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			abortWithCode(c, http.StatusTooManyRequests, codeRateLimited)
			return
		}
		c.Next()
	}
}

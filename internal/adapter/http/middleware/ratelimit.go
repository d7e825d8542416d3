package middleware

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	redisStore "provably-fair-dice/internal/adapter/storage/redis"
	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the limit for each endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"bets_place":   {Limit: 60, Window: time.Minute},
		"bets_resolve": {Limit: 300, Window: time.Minute},
		"bets_refund":  {Limit: 30, Window: time.Minute},
		"vaults_fund":  {Limit: 30, Window: time.Minute},
		"deposit":      {Limit: 10, Window: time.Minute},
		"house_manage": {Limit: 10, Window: time.Hour},
		"reads":        {Limit: 120, Window: time.Minute},
	}
}

// WithOverrides copies rules and replaces the limits named in overrides.
// Naming a group that does not exist is an error so typos in config surface
// at startup.
func WithOverrides(rules map[string]RateLimitRule, overrides map[string]int64) (map[string]RateLimitRule, error) {
	out := make(map[string]RateLimitRule, len(rules))
	for group, rule := range rules {
		out[group] = rule
	}
	for group, limit := range overrides {
		rule, ok := out[group]
		if !ok {
			known := make([]string, 0, len(rules))
			for g := range rules {
				known = append(known, g)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown rate limit group %q (known: %s)", group, strings.Join(known, ", "))
		}
		if limit <= 0 {
			return nil, fmt.Errorf("rate limit for %q must be positive", group)
		}
		rule.Limit = limit
		out[group] = rule
	}
	return out, nil
}

// RateLimits hands out one limiter per endpoint group. A nil store turns
// every limiter into a pass-through.
type RateLimits struct {
	store *redisStore.RateLimitStore
	rules map[string]RateLimitRule
	log   zerolog.Logger
}

func NewRateLimits(store *redisStore.RateLimitStore, rules map[string]RateLimitRule, log zerolog.Logger) *RateLimits {
	if rules == nil {
		rules = DefaultRateLimitRules()
	}
	return &RateLimits{store: store, rules: rules, log: log}
}

func (l *RateLimits) For(group string) gin.HandlerFunc {
	rule, ok := l.rules[group]
	if l.store == nil || !ok {
		return func(c *gin.Context) { c.Next() }
	}
	return RateLimiter(l.store, group, rule, l.log)
}

// RateLimiter limits one endpoint group. When Redis is unavailable requests
// are let through and the failure is logged.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := group + ":" + rateLimitSubject(c)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := max(result.ResetAt-time.Now().Unix(), 1)
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimitSubject runs before authentication, so the signer header is only
// trusted to be an address, not to be authentic. Anything that does not
// parse is counted against the client IP.
func rateLimitSubject(c *gin.Context) string {
	if signer, err := domain.ParseAddress(c.GetHeader(HeaderSigner)); err == nil {
		return "signer:" + signer.String()
	}
	return "ip:" + c.ClientIP()
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"provably-fair-dice/internal/adapter/http/middleware"
	redisStore "provably-fair-dice/internal/adapter/storage/redis"
	"provably-fair-dice/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	playerA = domain.Address{0xa1}.String()
	playerB = domain.Address{0xb2}.String()
)

func newRateLimitStore(t *testing.T) (*miniredis.Miniredis, *redisStore.RateLimitStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewRateLimitStore(client)
}

func setupRateLimitRouter(store *redisStore.RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	r.POST("/bets", middleware.RateLimiter(store, "bets_place", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	})
	return r
}

func placeAs(router http.Handler, signer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bets", nil)
	if signer != "" {
		req.Header.Set(middleware.HeaderSigner, signer)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	_, store := newRateLimitStore(t)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		w := placeAs(router, playerA)
		assert.Equal(t, http.StatusCreated, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	_, store := newRateLimitStore(t)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, placeAs(router, playerA).Code)
	}

	w := placeAs(router, playerA)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_001")
}

func TestRateLimiter_CountsPerSigner(t *testing.T) {
	_, store := newRateLimitStore(t)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, placeAs(router, playerA).Code)
	}
	assert.Equal(t, http.StatusCreated, placeAs(router, playerB).Code)
}

func TestRateLimiter_GarbageSignerFallsBackToIP(t *testing.T) {
	_, store := newRateLimitStore(t)
	router := setupRateLimitRouter(store)

	// Rotating an unparsable header must not buy fresh counters.
	for _, h := range []string{"junk-1", "junk-2", ""} {
		require.Equal(t, http.StatusCreated, placeAs(router, h).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, placeAs(router, "junk-4").Code)
	assert.Equal(t, http.StatusCreated, placeAs(router, playerA).Code)
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	mr, store := newRateLimitStore(t)
	router := setupRateLimitRouter(store)
	mr.Close()

	w := placeAs(router, playerA)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimits_For(t *testing.T) {
	_, store := newRateLimitStore(t)
	limits := middleware.NewRateLimits(store, map[string]middleware.RateLimitRule{
		"deposit": {Limit: 1, Window: time.Minute},
	}, zerolog.Nop())

	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/deposit", limits.For("deposit"), ok)
	r.POST("/other", limits.For("unknown_group"), ok)

	send := func(path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(middleware.HeaderSigner, playerA)
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("/deposit"))
	assert.Equal(t, http.StatusTooManyRequests, send("/deposit"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send("/other"))
	}
}

func TestRateLimits_NilStorePassesThrough(t *testing.T) {
	limits := middleware.NewRateLimits(nil, nil, zerolog.Nop())
	r := gin.New()
	r.POST("/bets", limits.For("bets_place"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(60), rules["bets_place"].Limit)
	assert.Equal(t, int64(300), rules["bets_resolve"].Limit)
	assert.Equal(t, int64(30), rules["bets_refund"].Limit)
	assert.Equal(t, int64(30), rules["vaults_fund"].Limit)
	assert.Equal(t, int64(10), rules["deposit"].Limit)
	assert.Equal(t, time.Hour, rules["house_manage"].Window)
	assert.Equal(t, int64(120), rules["reads"].Limit)
}

func TestWithOverrides(t *testing.T) {
	defaults := middleware.DefaultRateLimitRules()

	rules, err := middleware.WithOverrides(defaults, map[string]int64{"bets_place": 120})
	require.NoError(t, err)
	assert.Equal(t, int64(120), rules["bets_place"].Limit)
	assert.Equal(t, time.Minute, rules["bets_place"].Window)
	assert.Equal(t, int64(60), defaults["bets_place"].Limit, "defaults must not be mutated")

	_, err = middleware.WithOverrides(defaults, map[string]int64{"bets_plac": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bets_place")

	_, err = middleware.WithOverrides(defaults, map[string]int64{"deposit": 0})
	assert.Error(t, err)
}

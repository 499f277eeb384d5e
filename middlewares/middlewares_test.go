package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.C.JWTSecret = "test-secret"
	config.C.JWTTTL = time.Hour
}

func setupDB(t *testing.T) {
	t.Helper()
	gdb, err := db.OpenMemory("mw_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, db.SeedPlans(gdb))
	require.NoError(t, config.InitPlatformState(gdb))
	config.DB = gdb
}

func createProfile(t *testing.T, role string) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: uuid.NewString() + "@example.com", Role: role, SubscriptionTier: models.PlanFree}
	require.NoError(t, config.DB.Create(p).Error)
	return p
}

func bearer(t *testing.T, p *models.Profile) string {
	t.Helper()
	tok, err := IssueToken(p.ID, p.Email, p.Role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func protected(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(), LoadProfile()}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "email": CurrentProfile(c).Email})
	})
	r.Any("/x", chain...)
	return r
}

func do(r http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestParseTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	tok, err := IssueToken(id, "a@b.c", models.RoleAdmin)
	require.NoError(t, err)

	claims, external, err := ParseToken(tok)
	require.NoError(t, err)
	assert.False(t, external)
	sub, _ := claims.GetSubject()
	assert.Equal(t, id.String(), sub)
	assert.Equal(t, models.RoleAdmin, claims["role"])
}

func TestParseTokenRejects(t *testing.T) {
	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()})
	s, err := wrongKey.SignedString([]byte("other"))
	require.NoError(t, err)
	_, _, err = ParseToken(s)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(-time.Hour).Unix()})
	s, err = expired.SignedString([]byte(config.C.JWTSecret))
	require.NoError(t, err)
	_, _, err = ParseToken(s)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	setupDB(t)
	p := createProfile(t, models.RoleFarmer)
	r := protected()

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", "Bearer garbage").Code)

	w := do(r, http.MethodGet, "/x", bearer(t, p))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), p.Email)

	tok, err := IssueToken(p.ID, p.Email, p.Role)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x?token="+tok, "").Code)
}

func TestLoadProfileUnknownUser(t *testing.T) {
	setupDB(t)
	ghost := &models.Profile{Email: "ghost@example.com", Role: models.RoleFarmer}
	ghost.ID = uuid.New()
	assert.Equal(t, http.StatusUnauthorized, do(protected(), http.MethodGet, "/x", bearer(t, ghost)).Code)
}

func TestRequireRole(t *testing.T) {
	setupDB(t)
	farmer := createProfile(t, models.RoleFarmer)
	admin := createProfile(t, models.RoleAdmin)
	super := createProfile(t, models.RoleSuperAdmin)

	r := protected(RequireRole(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/x", bearer(t, farmer)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", bearer(t, admin)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", bearer(t, super)).Code)

	r = protected(RequireRole(models.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/x", bearer(t, admin)).Code)
}

func TestRequireFeature(t *testing.T) {
	setupDB(t)
	farmer := createProfile(t, models.RoleFarmer)
	admin := createProfile(t, models.RoleAdmin)

	r := protected(RequireFeature(models.FeatureAutomation))
	w := do(r, http.MethodGet, "/x", bearer(t, farmer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"feature":"automation"`)
	assert.Contains(t, w.Body.String(), `"plan":"free"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", bearer(t, admin)).Code)

	// Weather is on the free plan.
	r = protected(RequireFeature(models.FeatureWeather))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", bearer(t, farmer)).Code)
}

func TestMaintenanceGuard(t *testing.T) {
	setupDB(t)
	farmer := createProfile(t, models.RoleFarmer)
	admin := createProfile(t, models.RoleAdmin)
	r := protected(MaintenanceGuard())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/x", bearer(t, farmer)).Code)

	require.NoError(t, config.SetPlatformFlag(config.DB, models.ConfigMaintenanceMode, true, nil))
	t.Cleanup(func() { _ = config.SetPlatformFlag(config.DB, models.ConfigMaintenanceMode, false, nil) })

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/x", bearer(t, farmer)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", bearer(t, farmer)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/x", bearer(t, admin)).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := &RateLimiter{buckets: make(map[string]*bucket), window: time.Minute}
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("k", 3), "request %d", i)
	}
	assert.False(t, rl.Allow("k", 3))
	assert.True(t, rl.Allow("other", 3))

	rl.buckets["k"].windowAt = time.Now().Add(-2 * time.Minute)
	assert.True(t, rl.Allow("k", 3), "new window")

	rl.buckets["stale"] = &bucket{count: 1, windowAt: time.Now().Add(-5 * time.Minute)}
	rl.cleanup()
	_, ok := rl.buckets["stale"]
	assert.False(t, ok)
}

func TestRateLimiterSweepStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{buckets: make(map[string]*bucket), window: time.Minute, stopped: make(chan struct{})}
	rl.mu.Lock()
	rl.buckets["stale"] = &bucket{count: 1, windowAt: time.Now().Add(-5 * time.Minute)}
	rl.mu.Unlock()
	go rl.sweep(ctx, time.Millisecond)

	require.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		_, ok := rl.buckets["stale"]
		return !ok
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-rl.stopped:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
}

func TestNewRateLimiterStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimiter(ctx)
	assert.True(t, rl.Allow("k", 1))
	cancel()
	select {
	case <-rl.stopped:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := &RateLimiter{buckets: make(map[string]*bucket), window: time.Minute}
	r := gin.New()
	r.POST("/contact", RateLimitByIP(rl, "contact", 2), func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/contact", "").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/contact", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/contact", "").Code)
}

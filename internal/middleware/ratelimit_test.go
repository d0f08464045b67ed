package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testRateLimiterConfig はテスト用の小さなレート制限設定を返す。
func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0), // 1 req/sec
		GeneralBurst:    2,
		LoginRate:       rate.Limit(1.0),
		LoginBurst:      1,
		CleanupInterval: time.Minute,
	}
}

// TestGeneralMiddleware_AllowsWithinBurst はバースト内のリクエストが許可されることを検証する。
func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/favorites", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

// TestGeneralMiddleware_BlocksOverBurst はバースト超過で429が返ることを検証する。
func TestGeneralMiddleware_BlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastCode int
	var lastHeader string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/favorites", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
		lastHeader = rec.Header().Get("Retry-After")
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", lastCode, http.StatusTooManyRequests)
	}
	if lastHeader == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

// TestGeneralMiddleware_PerUser はユーザーごとに独立したリミッターが使われることを検証する。
func TestGeneralMiddleware_PerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-1のバーストを使い切る
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// user-2は影響を受けない
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-2"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

// TestGeneralMiddleware_NoUserID は認証コンテキストなしで401が返ることを検証する。
func TestGeneralMiddleware_NoUserID(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestLoginMiddleware_KeyedByIP はログイン制限がIP単位で適用されることを検証する。
func TestLoginMiddleware_KeyedByIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.LoginMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 同一IPからの2回目はバースト1を超過する
	first := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	first.RemoteAddr = "203.0.113.1:50000"
	firstRec := httptest.NewRecorder()
	handler.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusOK {
		t.Errorf("first request: status = %d, want %d", firstRec.Code, http.StatusOK)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	second.RemoteAddr = "203.0.113.1:50001"
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want %d", secondRec.Code, http.StatusTooManyRequests)
	}

	// 別IPは独立に許可される
	other := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	other.RemoteAddr = "203.0.113.2:50000"
	otherRec := httptest.NewRecorder()
	handler.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want %d", otherRec.Code, http.StatusOK)
	}

	if got := rl.LoginLimiterCount(); got != 2 {
		t.Errorf("LoginLimiterCount = %d, want 2", got)
	}
}

// TestCleanup は期限切れエントリがクリーンアップで削除されることを検証する。
func TestCleanup(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.getOrCreate(&rl.generalMu, rl.generalLimiters, "user-1", config.GeneralRate, config.GeneralBurst)
	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Fatalf("GeneralLimiterCount = %d, want 1", got)
	}

	// lastAccessを過去に偽装してクリーンアップ対象にする
	rl.generalMu.Lock()
	rl.generalLimiters["user-1"].lastAccess = time.Now().Add(-time.Hour)
	rl.generalMu.Unlock()

	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("GeneralLimiterCount after cleanup = %d, want 0", got)
	}
}

// TestClientIP はRemoteAddrからポートが除去されることを検証する。
func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:12345"
	if got := clientIP(req); got != "198.51.100.7" {
		t.Errorf("clientIP = %q, want %q", got, "198.51.100.7")
	}

	req.RemoteAddr = "no-port-here"
	if got := clientIP(req); got != "no-port-here" {
		t.Errorf("clientIP = %q, want %q", got, "no-port-here")
	}
}

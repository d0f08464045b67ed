package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubTokenParser はTokenParserのスタブ実装。
type stubTokenParser struct {
	userID string
	err    error
}

func (p *stubTokenParser) Parse(tokenString string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.userID, nil
}

// TestAuthMiddleware_ValidToken は有効なBearerトークンでユーザーIDが注入されることを検証する。
func TestAuthMiddleware_ValidToken(t *testing.T) {
	parser := &stubTokenParser{userID: "user-1"}

	var gotUserID string
	handler := NewAuthMiddleware(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("UserIDFromContext returned error: %v", err)
		}
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
}

// TestAuthMiddleware_MissingHeader はAuthorizationヘッダーなしで401が返ることを検証する。
func TestAuthMiddleware_MissingHeader(t *testing.T) {
	parser := &stubTokenParser{userID: "user-1"}

	called := false
	handler := NewAuthMiddleware(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("next handler must not be called for unauthenticated request")
	}
}

// TestAuthMiddleware_WrongScheme はBearer以外のスキームで401が返ることを検証する。
func TestAuthMiddleware_WrongScheme(t *testing.T) {
	parser := &stubTokenParser{userID: "user-1"}

	handler := NewAuthMiddleware(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestAuthMiddleware_InvalidToken はトークン検証失敗で401が返ることを検証する。
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	parser := &stubTokenParser{err: errors.New("token expired")}

	handler := NewAuthMiddleware(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestUserIDFromContext_NotSet はコンテキストにユーザーIDがない場合にエラーが返ることを検証する。
func TestUserIDFromContext_NotSet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for context without user ID")
	}
}

// TestContextWithUserID はContextWithUserIDで注入した値が取得できることを検証する。
func TestContextWithUserID(t *testing.T) {
	ctx := ContextWithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "user-42")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext returned error: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want %q", userID, "user-42")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tenkiman/internal/auth"
	"github.com/hitoshi/tenkiman/internal/middleware"
	"github.com/hitoshi/tenkiman/internal/model"
)

// stubUserService はUserServiceInterfaceのスタブ実装。
type stubUserService struct {
	signupUser *model.User
	signupErr  error
	loginToken string
	loginUser  *model.User
	loginErr   error
	getUser    *model.User
	getErr     error
}

func (s *stubUserService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return s.signupUser, nil
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return s.loginToken, s.loginUser, nil
}

func (s *stubUserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getUser, nil
}

// TestSignup は201と作成済みユーザーが返ることを検証する。
func TestSignup(t *testing.T) {
	service := &stubUserService{signupUser: &model.User{
		ID:        "user-1",
		Email:     "test@example.com",
		CreatedAt: time.Now(),
	}}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup",
		strings.NewReader(`{"email":"test@example.com","password":"password123"}`))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if resp.ID != "user-1" || resp.Email != "test@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.WeatherConnected {
		t.Error("expected weather_connected = false for new user")
	}
}

// TestSignup_DuplicateEmail は登録済みメールアドレスで400とUSER_EXISTSが返ることを検証する。
func TestSignup_DuplicateEmail(t *testing.T) {
	service := &stubUserService{signupErr: auth.ErrUserExists}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup",
		strings.NewReader(`{"email":"test@example.com","password":"password123"}`))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if resp.Code != model.ErrCodeUserExists {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeUserExists)
	}
}

// TestSignup_Validation は不正なリクエストで400が返ることを検証する。
func TestSignup_Validation(t *testing.T) {
	service := &stubUserService{}
	h := NewUserHandler(service)

	tests := []struct {
		name string
		body string
	}{
		{name: "不正JSON", body: `{`},
		{name: "メールアドレス欠落", body: `{"password":"password123"}`},
		{name: "メールアドレス形式不正", body: `{"email":"not-an-email","password":"password123"}`},
		{name: "パスワードが短い", body: `{"email":"test@example.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Signup(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

// TestLogin はアクセストークンとユーザー情報が返ることを検証する。
func TestLogin(t *testing.T) {
	service := &stubUserService{
		loginToken: "jwt-token",
		loginUser: &model.User{
			ID:             "user-1",
			Email:          "test@example.com",
			WeatherIDToken: "weather-token",
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"email":"test@example.com","password":"password123"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if resp.AccessToken != "jwt-token" {
		t.Errorf("access_token = %q, want %q", resp.AccessToken, "jwt-token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type = %q, want %q", resp.TokenType, "bearer")
	}
	if !resp.User.WeatherConnected {
		t.Error("expected weather_connected = true")
	}
}

// TestLogin_InvalidCredentials は認証失敗で401が返ることを検証する。
func TestLogin_InvalidCredentials(t *testing.T) {
	service := &stubUserService{loginErr: auth.ErrInvalidCredentials}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"email":"test@example.com","password":"wrong-password"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var resp apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidCredentials)
	}
}

// TestMe は認証済みユーザー自身の情報が返ることを検証する。
func TestMe(t *testing.T) {
	service := &stubUserService{getUser: &model.User{
		ID:    "user-1",
		Email: "test@example.com",
	}}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if resp.ID != "user-1" {
		t.Errorf("id = %q, want %q", resp.ID, "user-1")
	}
}

// TestMe_NoContext は認証コンテキストなしで401が返ることを検証する。
func TestMe_NoContext(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestMe_UserNotFound は存在しないユーザーで404が返ることを検証する。
func TestMe_UserNotFound(t *testing.T) {
	h := NewUserHandler(&stubUserService{getUser: nil})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "deleted-user"))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/tenkiman/internal/auth"
	"github.com/hitoshi/tenkiman/internal/middleware"
	"github.com/hitoshi/tenkiman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Signup は新規ユーザーを登録する。
	Signup(ctx context.Context, email, password string) (*model.User, error)
	// Login はユーザーを認証し、アクセストークンを発行する。
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	// GetUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service  UserServiceInterface
	validate *validator.Validate
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	WeatherConnected bool      `json:"weather_connected"`
	CreatedAt        time.Time `json:"created_at"`
}

// loginResponse はログイン成功のAPIレスポンス。
type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

// Signup はユーザー登録を処理する。
// POST /api/v1/users/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("JSONの解析に失敗しました"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	user, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUserExistsError())
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Login はログインを処理する。
// POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("JSONの解析に失敗しました"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

// Me は認証済みユーザー自身の情報を返す。
// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:               user.ID,
		Email:            user.Email,
		WeatherConnected: user.WeatherIDToken != "",
		CreatedAt:        user.CreatedAt,
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserExists, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeWeatherAuthFailed, model.ErrCodeWeatherUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeCityNotResolved, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeWeatherRequestFailed:
		return http.StatusBadGateway
	case model.ErrCodeChatFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

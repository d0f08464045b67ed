// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, weather, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserExists             = "USER_EXISTS"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeWeatherAuthFailed      = "WEATHER_AUTH_FAILED"
	ErrCodeWeatherRequestFailed   = "WEATHER_REQUEST_FAILED"
	ErrCodeWeatherUnauthenticated = "WEATHER_UNAUTHENTICATED"
	ErrCodeCityNotResolved        = "CITY_NOT_RESOLVED"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeChatFailed             = "CHAT_FAILED"
)

// NewUserExistsError は既存メールアドレスでのサインアップエラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewWeatherAuthFailedError はweather.comログイン失敗エラーを生成する。
func NewWeatherAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeWeatherAuthFailed,
		Message:  "weather.comの認証に失敗しました。",
		Category: "weather",
		Action:   "weather.comのメールアドレスとパスワードを確認してください。",
	}
}

// NewWeatherRequestFailedError はweather.comリクエスト失敗エラーを生成する。
func NewWeatherRequestFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeWeatherRequestFailed,
		Message:  fmt.Sprintf("weather.comへのリクエストに失敗しました: %s", reason),
		Category: "weather",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewWeatherUnauthenticatedError はweather.com未ログインエラーを生成する。
func NewWeatherUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeWeatherUnauthenticated,
		Message:  "weather.comにログインしていません。",
		Category: "weather",
		Action:   "再度ログインしてweather.comのセッションを取得してください。",
	}
}

// NewCityNotResolvedError は都市名解決失敗エラーを生成する。
func NewCityNotResolvedError(cities string) *APIError {
	return &APIError{
		Code:     ErrCodeCityNotResolved,
		Message:  fmt.Sprintf("次の都市が見つかりませんでした: %s", cities),
		Category: "weather",
		Action:   "都市名のつづりを確認してください。",
	}
}

// NewValidationFailedError はリクエスト検証失敗エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("リクエストの内容が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストの形式を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewChatFailedError はチャット応答生成失敗エラーを生成する。
func NewChatFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeChatFailed,
		Message:  "天気の要約・回答の生成に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

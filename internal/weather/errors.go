package weather

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials はweather.comがログインを認証情報不正として拒否した場合のエラー。
// ステータス400かつ既知のエラーフレーズを含むレスポンスでのみ返される。
var ErrInvalidCredentials = errors.New("メールアドレスまたはパスワードが不正です")

// ErrUnauthenticated はセッショントークンが必要な操作をトークンなしで呼び出した場合のエラー。
// ネットワーク呼び出しを行う前のローカル事前条件チェックで返される。
var ErrUnauthenticated = errors.New("weather.comにログインしていません")

// ErrCityNotFound は都市名の解決に失敗した場合のエラー。
// ネットワークエラー・レスポンス構造の欠落・候補ゼロ件を区別せず一律に返す。
var ErrCityNotFound = errors.New("都市が見つかりません")

// RequestError はweather.comへのリクエスト失敗を表す。
// 上記のセンチネル以外の全ての失敗（非2xxステータス、トランスポートエラー、
// パース不能なレスポンス）はこの型に正規化され、生のエラーはこの境界を越えない。
type RequestError struct {
	// Op は失敗した操作名（login、get_preferences等）。
	Op string
	// StatusCode はHTTPステータスコード。トランスポートエラー時は0。
	StatusCode int
	// Body はレスポンスボディ（診断用）。
	Body string
	// PlaceID は天気取得失敗時の対象placeID。該当しない場合は空。
	PlaceID string
	// FailedCities は都市名解決に失敗した際の対象都市名（入力順）。
	FailedCities []string
	// Err は元のエラー。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("weather.comリクエストに失敗しました (%s)", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status=%d", e.StatusCode)
	}
	if e.PlaceID != "" {
		msg += fmt.Sprintf(": placeID=%s", e.PlaceID)
	}
	if len(e.FailedCities) > 0 {
		msg += fmt.Sprintf(": cities=%v", e.FailedCities)
	}
	if e.Body != "" {
		msg += fmt.Sprintf(": body=%s", e.Body)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap はラップされた元のエラーを返す。
func (e *RequestError) Unwrap() error {
	return e.Err
}

// newStatusError は非2xxレスポンスからRequestErrorを生成する。
func newStatusError(op string, statusCode int, body string) *RequestError {
	return &RequestError{Op: op, StatusCode: statusCode, Body: body}
}

// newTransportError はトランスポート・パース失敗からRequestErrorを生成する。
func newTransportError(op string, err error) *RequestError {
	return &RequestError{Op: op, Err: err}
}

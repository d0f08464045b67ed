// Package weather はweather.com連携機能を提供する。
// ログインによるセッション確立、お気に入り都市の読み書き、
// 都市名の解決、都市ごとの天気取得を含む。
package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hitoshi/tenkiman/internal/model"
)

const (
	// defaultAPIBaseURL はweather.comの認証・設定APIのベースURL。
	defaultAPIBaseURL = "https://upsx.weather.com"
	// loginInvalidMessage は認証情報不正時にレスポンスボディに含まれる固定フレーズ。
	// ステータス400とこのフレーズの組み合わせでのみErrInvalidCredentialsと判定する。
	loginInvalidMessage = "use a valid user ID and password"
	// idTokenCookieName は認証済み呼び出しで送信するCookie名。
	idTokenCookieName = "id_token"
)

// browserHeaders はweather.comが期待するリクエストヘッダー。
// ブラウザ以外からの呼び出しは拒否されるため、全ての外向きリクエストに付与する。
var browserHeaders = map[string]string{
	"accept":             "*/*",
	"accept-language":    "en-US,en;q=0.9",
	"content-type":       "text/plain;charset=UTF-8",
	"dnt":                "1",
	"origin":             "https://weather.com",
	"priority":           "u=1, i",
	"referer":            "https://weather.com/",
	"sec-ch-ua":          `"Chromium";v="136", "Google Chrome";v="136", "Not.A/Brand";v="99"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Linux"`,
	"sec-fetch-dest":     "empty",
	"sec-fetch-mode":     "cors",
	"sec-fetch-site":     "same-site",
	"user-agent":         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
}

// applyBrowserHeaders はリクエストにブラウザヘッダーを付与する。
func applyBrowserHeaders(req *http.Request) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
}

// CityResolver は都市名解決のインターフェース。
// テスト時にモックに差し替え可能。
type CityResolver interface {
	// Resolve は都市名をweather.comのロケーション情報に解決する。
	// 解決できない場合は理由を問わずErrCityNotFoundを返す。
	Resolve(ctx context.Context, name string) (*model.Location, error)
}

// Client はweather.comの認証・設定APIのクライアント。
// セッショントークン（idトークン）は内部に保持せず、
// 認証が必要な各操作に呼び出し元が明示的に渡す。
type Client struct {
	httpClient *http.Client
	resolver   CityResolver
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, resolver CityResolver, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		resolver:   resolver,
		logger:     logger,
		baseURL:    defaultAPIBaseURL,
	}
}

// buildLoginBody はログインリクエストのボディ文字列を構築する。
// weather.com側のパーサーはブラウザが送る正確なバイト列を期待しているため、
// 構造化エンコードではなく文字列連結で組み立てる。
func buildLoginBody(email, password string) string {
	return `{"email":"` + email + `","password":"` + password + `"}`
}

// Login はメールアドレスとパスワードでweather.comにログインし、
// セッショントークン（idトークン）を返す。
// アクセストークンとリフレッシュトークンもCookieで発行されるが、
// 以降の操作では使用しないため破棄する。
//
// 認証情報が不正な場合はErrInvalidCredentials、
// それ以外の失敗は*RequestErrorを返す。
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := buildLoginBody(email, password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(body))
	if err != nil {
		return "", newTransportError("login", err)
	}
	applyBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newTransportError("login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(text), loginInvalidMessage) {
			return "", ErrInvalidCredentials
		}
		return "", newStatusError("login", resp.StatusCode, string(text))
	}

	// 3つのトークンはレスポンスCookieから抽出する
	var accessToken, idToken, refreshToken string
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case "access_token":
			accessToken = cookie.Value
		case idTokenCookieName:
			idToken = cookie.Value
		case "refresh_token":
			refreshToken = cookie.Value
		}
	}

	if accessToken == "" || idToken == "" || refreshToken == "" {
		return "", newTransportError("login", fmt.Errorf("アクセストークン・idトークン・リフレッシュトークンのいずれかが取得できませんでした"))
	}

	return idToken, nil
}

// GetPreferences はユーザー設定ドキュメント全体を取得する。
// idTokenが空の場合はネットワーク呼び出しを行わずErrUnauthenticatedを返す。
func (c *Client) GetPreferences(ctx context.Context, idToken string) (*model.Preferences, error) {
	if idToken == "" {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/preference", nil)
	if err != nil {
		return nil, newTransportError("get_preferences", err)
	}
	applyBrowserHeaders(req)
	req.AddCookie(&http.Cookie{Name: idTokenCookieName, Value: idToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError("get_preferences", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError("get_preferences", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("get_preferences", resp.StatusCode, string(text))
	}

	prefs := &model.Preferences{}
	if err := json.Unmarshal(text, prefs); err != nil {
		return nil, newTransportError("get_preferences", err)
	}

	return prefs, nil
}

// GetFavoriteCities はお気に入り都市の一覧を取得する。
// 設定ドキュメントにlocationsフィールドがない場合は空のスライスを返す。
func (c *Client) GetFavoriteCities(ctx context.Context, idToken string) ([]model.Location, error) {
	prefs, err := c.GetPreferences(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if prefs.Locations == nil {
		return []model.Location{}, nil
	}
	return prefs.Locations, nil
}

// putPreferences は設定ドキュメント全体を書き戻す。
// 取得時に保持した全フィールドがそのまま送信されるため、部分更新によるデータ消失は起きない。
func (c *Client) putPreferences(ctx context.Context, idToken string, prefs *model.Preferences) error {
	if idToken == "" {
		return ErrUnauthenticated
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return newTransportError("put_preferences", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/preference", bytes.NewReader(data))
	if err != nil {
		return newTransportError("put_preferences", err)
	}
	applyBrowserHeaders(req)
	req.AddCookie(&http.Cookie{Name: idTokenCookieName, Value: idToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newTransportError("put_preferences", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return newStatusError("put_preferences", resp.StatusCode, string(text))
	}

	return nil
}

// AddFavoriteCities は複数の都市名をお気に入りに追加し、更新後の全お気に入り一覧を返す。
//
// 都市名は並列で解決され、1件でも解決に失敗した場合は書き込みを行わず、
// 失敗した全都市名を含む*RequestErrorを返す（全件成功か全件中止か）。
// 既にお気に入り済みのplaceIDは重複追加せず黙って除外する。
// 新規エントリのpositionは既存の最大値+1から入力順に採番される。
// 除外の結果追加すべきエントリがなくなった場合、書き込みは発生しない。
func (c *Client) AddFavoriteCities(ctx context.Context, idToken string, cityNames []string) ([]model.Location, error) {
	prefs, err := c.GetPreferences(ctx, idToken)
	if err != nil {
		return nil, err
	}

	// 都市名を並列で解決する。結果は入力順を保つ。
	resolved := make([]*model.Location, len(cityNames))
	var wg sync.WaitGroup
	for i, name := range cityNames {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			loc, err := c.resolver.Resolve(ctx, name)
			if err != nil {
				c.logger.Warn("都市名の解決に失敗しました",
					slog.String("city", name),
					slog.String("error", err.Error()),
				)
				return
			}
			resolved[i] = loc
		}(i, name)
	}
	wg.Wait()

	var failed []string
	for i, name := range cityNames {
		if resolved[i] == nil {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return nil, &RequestError{
			Op:           "add_favorite_cities",
			FailedCities: failed,
			Err:          fmt.Errorf("都市情報を取得できませんでした: %s", strings.Join(failed, ", ")),
		}
	}

	// placeIDで重複を除外する。既存のお気に入りとバッチ内の重複の両方が対象。
	seen := make(map[string]bool, len(prefs.Locations))
	for _, loc := range prefs.Locations {
		seen[loc.PlaceID] = true
	}

	// 新規エントリのpositionは既存の最大値+1から連番
	nextPosition := maxPosition(prefs.Locations) + 1

	var added []model.Location
	for i := range cityNames {
		loc := *resolved[i]
		if seen[loc.PlaceID] {
			continue
		}
		seen[loc.PlaceID] = true
		loc.Position = nextPosition
		nextPosition++
		added = append(added, loc)
	}

	// 追加対象がない場合は書き込みを行わない（既にお気に入り済みはエラーではない）
	if len(added) == 0 {
		return prefs.Locations, nil
	}

	prefs.Locations = append(prefs.Locations, added...)
	if err := c.putPreferences(ctx, idToken, prefs); err != nil {
		return nil, err
	}

	return prefs.Locations, nil
}

// maxPosition は既存エントリのpositionの最大値を返す。エントリがない場合は0。
func maxPosition(locations []model.Location) int {
	maxPos := 0
	for _, loc := range locations {
		if loc.Position > maxPos {
			maxPos = loc.Position
		}
	}
	return maxPos
}

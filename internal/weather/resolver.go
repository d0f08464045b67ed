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

	"github.com/hitoshi/tenkiman/internal/model"
)

const (
	// defaultSearchURL はweather.comのロケーション検索APIのエンドポイント。
	defaultSearchURL = "https://weather.com/api/v1/p/redux-dal"
	// searchConfigName はロケーション検索のDALコンフィグ名。
	searchConfigName = "getSunV3LocationSearchUrlConfig"
)

// searchRequest はロケーション検索リクエストの1要素。
// weather.comのDAL APIはリクエスト配列を受け取る。
type searchRequest struct {
	Name   string       `json:"name"`
	Params searchParams `json:"params"`
}

// searchParams はロケーション検索のクエリパラメータ。
type searchParams struct {
	Query        string `json:"query"`
	Language     string `json:"language"`
	LocationType string `json:"locationType"`
}

// searchResponse はロケーション検索レスポンスのトップレベル構造。
// dal配下はクエリパラメータを連結した文字列をキーとするマップになっているため、
// キーを組み立てて引くのではなくマップ全体をデコードして候補を取り出す。
type searchResponse struct {
	Dal struct {
		LocationSearch map[string]searchEntry `json:"getSunV3LocationSearchUrlConfig"`
	} `json:"dal"`
}

// searchEntry は1クエリ分の検索結果。
type searchEntry struct {
	Data struct {
		Location searchLocation `json:"location"`
	} `json:"data"`
}

// searchLocation は検索候補の並列配列。i番目の要素が1候補に対応する。
type searchLocation struct {
	Address   []string     `json:"address"`
	Latitude  []coordValue `json:"latitude"`
	Longitude []coordValue `json:"longitude"`
	PlaceID   []string     `json:"placeId"`
}

// coordValue は緯度・経度の1要素。
// weather.comは数値と文字列の両方の表現で返すことがあるため、
// 元の表記を保ったままデコードする。
type coordValue string

// UnmarshalJSON はJSON数値・文字列のどちらも受け付ける。
func (v *coordValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = coordValue(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*v = coordValue(num.String())
	return nil
}

// Resolver は都市名をweather.comのロケーション情報に解決する。
// 状態を持たず、複数のゴルーチンから同時に呼び出しても安全。
type Resolver struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(httpClient *http.Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultSearchURL,
	}
}

// Resolve は都市名をロケーション情報（名前・座標・placeID）に解決する。
// ネットワークエラー・レスポンス構造の欠落・候補ゼロ件はこのコンポーネントの
// 境界では区別せず、詳細をログに残した上で一律にErrCityNotFoundを返す。
// 返り値のPositionは未設定（0）であり、呼び出し元が採番する。
func (r *Resolver) Resolve(ctx context.Context, name string) (*model.Location, error) {
	payload := []searchRequest{
		{
			Name: searchConfigName,
			Params: searchParams{
				Query:        name,
				Language:     "en-US",
				LocationType: "locale",
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("ロケーション検索リクエストの構築に失敗しました",
			slog.String("city", name),
			slog.String("error", err.Error()),
		)
		return nil, ErrCityNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, ErrCityNotFound
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("ロケーション検索の呼び出しに失敗しました",
			slog.String("city", name),
			slog.String("error", err.Error()),
		)
		return nil, ErrCityNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("ロケーション検索がエラーステータスを返しました",
			slog.String("city", name),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, ErrCityNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrCityNotFound
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		r.logger.Warn("ロケーション検索レスポンスのパースに失敗しました",
			slog.String("city", name),
			slog.String("error", err.Error()),
		)
		return nil, ErrCityNotFound
	}

	loc, ok := firstCandidate(result)
	if !ok {
		r.logger.Info("都市名に一致するロケーションがありません",
			slog.String("city", name),
		)
		return nil, ErrCityNotFound
	}

	return loc, nil
}

// firstCandidate は検索レスポンスから先頭の候補を取り出す。
// 1リクエストにつきdal配下のエントリは1件だが、キーの組み立てに依存しないよう
// マップを走査して最初に候補を持つエントリを採用する。
func firstCandidate(result searchResponse) (*model.Location, bool) {
	for _, entry := range result.Dal.LocationSearch {
		loc := entry.Data.Location
		if len(loc.Address) == 0 || len(loc.Latitude) == 0 || len(loc.Longitude) == 0 || len(loc.PlaceID) == 0 {
			continue
		}
		return &model.Location{
			Name:       loc.Address[0],
			Coordinate: fmt.Sprintf("%s,%s", loc.Latitude[0], loc.Longitude[0]),
			PlaceID:    loc.PlaceID[0],
		}, true
	}
	return nil, false
}

// compile-time interface check
var _ CityResolver = (*Resolver)(nil)

package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hitoshi/tenkiman/internal/model"
)

const (
	// defaultSiteBaseURL は天気ページのベースURL。
	defaultSiteBaseURL = "https://weather.com"
	// temperatureTestID は気温を含む要素のdata-testid属性値。
	temperatureTestID = "TemperatureValue"
	// phraseTestID は天気の説明文を含む要素のdata-testid属性値。
	phraseTestID = "wxPhrase"
)

// TextSanitizer はスクレイピングしたテキストの無害化インターフェース。
// security.TextSanitizerServiceの部分集合として定義する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Fetcher はweather.comの天気ページから1都市分の現在の天気を取得する。
// APIではなくHTMLページをパースするため、ページ構造の変更に弱い点に注意。
type Fetcher struct {
	httpClient *http.Client
	sanitizer  TextSanitizer
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(httpClient *http.Client, sanitizer TextSanitizer, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		sanitizer:  sanitizer,
		logger:     logger,
		baseURL:    defaultSiteBaseURL,
	}
}

// FetchConditions は指定placeIDの現在の気温と天気を取得する。
// 気温は摂氏の整数（度記号は除去）、天気は小文字に正規化して返す。
// 失敗時は対象のplaceIDを含む*RequestErrorを返す。
func (f *Fetcher) FetchConditions(ctx context.Context, placeID string) (*model.WeatherReading, error) {
	// unit=m で摂氏表示のページを取得する
	url := fmt.Sprintf("%s/weather/today/l/%s?unit=m", f.baseURL, placeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: err}
	}
	applyBrowserHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, StatusCode: resp.StatusCode}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: err}
	}

	tempText, ok := findTestIDText(doc, temperatureTestID)
	if !ok {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: fmt.Errorf("気温要素が見つかりません")}
	}
	phraseText, ok := findTestIDText(doc, phraseTestID)
	if !ok {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: fmt.Errorf("天気要素が見つかりません")}
	}

	temp, err := parseTemperature(tempText)
	if err != nil {
		return nil, &RequestError{Op: "fetch_conditions", PlaceID: placeID, Err: err}
	}

	condition := strings.ToLower(strings.TrimSpace(f.sanitizer.SanitizeText(phraseText)))

	return &model.WeatherReading{
		PlaceID:            placeID,
		TemperatureCelsius: temp,
		WeatherCondition:   condition,
	}, nil
}

// parseTemperature は"20°"のような表示文字列を整数の摂氏温度に変換する。
func parseTemperature(text string) (int, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "°")
	s = strings.TrimSpace(s)
	temp, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("気温の値をパースできません: %q", text)
	}
	return temp, nil
}

// findTestIDText はHTMLツリーを深さ優先で走査し、
// data-testid属性が一致する最初の要素のテキストを返す。
func findTestIDText(doc *html.Node, testID string) (string, bool) {
	var found *html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "data-testid" && attr.Val == testID {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found == nil {
		return "", false
	}

	var sb strings.Builder
	collectText(found, &sb)
	return sb.String(), true
}

// collectText は要素配下の全テキストノードを連結する。
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"fmt"
)

// Location はweather.comのお気に入り都市1件を表す。
// JSONタグはweather.comのpreference APIのワイヤーフォーマットに一致させる。
type Location struct {
	Name       string `json:"name"`
	Coordinate string `json:"coordinate"` // "lat,lon" 形式
	PlaceID    string `json:"placeID"`
	Position   int    `json:"position"`
}

// WeatherReading は1都市の現在の天気の読み取り結果を表す。
// フェッチごとに生成される一時データであり永続化されない。
type WeatherReading struct {
	PlaceID            string `json:"placeID"`
	TemperatureCelsius int    `json:"temperature_celsius"`
	WeatherCondition   string `json:"weather_condition"` // 小文字に正規化済み
}

// CityWeather はお気に入り都市に天気情報をマージした結果を表す。
// フェッチに失敗した都市はHasReadingがfalseのまま返され、リストから除外されない。
type CityWeather struct {
	Location
	TemperatureCelsius int    `json:"temperature_celsius,omitempty"`
	WeatherCondition   string `json:"weather_condition,omitempty"`
	HasReading         bool   `json:"-"`
}

// Preferences はweather.comのユーザー設定ドキュメント全体を表す。
// locations以外のフィールド（userID、locale、unit、dashboard等）は
// 読み取った生のJSONをそのまま保持し、PUT時に無変更で書き戻す。
// 部分的な書き込みによるサーバー側のデータ消失を防ぐための構造。
type Preferences struct {
	Locations []Location

	// raw はlocationsを含む全フィールドの生JSON。
	// MarshalJSONでlocationsのみ上書きして書き戻す。
	raw map[string]json.RawMessage
}

// UnmarshalJSON は設定ドキュメントをデコードする。
// locationsフィールドのみ型付きで取り出し、残りは生のまま保持する。
func (p *Preferences) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("設定ドキュメントのデコードに失敗しました: %w", err)
	}

	var locations []Location
	if locData, ok := raw["locations"]; ok {
		if err := json.Unmarshal(locData, &locations); err != nil {
			return fmt.Errorf("locationsフィールドのデコードに失敗しました: %w", err)
		}
	}

	p.raw = raw
	p.Locations = locations
	return nil
}

// MarshalJSON は設定ドキュメントをエンコードする。
// 読み取り時に保持した全フィールドをそのまま書き戻し、locationsのみ現在値で上書きする。
func (p Preferences) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.raw)+1)
	for k, v := range p.raw {
		out[k] = v
	}

	locations := p.Locations
	if locations == nil {
		locations = []Location{}
	}
	locData, err := json.Marshal(locations)
	if err != nil {
		return nil, fmt.Errorf("locationsフィールドのエンコードに失敗しました: %w", err)
	}
	out["locations"] = locData

	return json.Marshal(out)
}

// UserID は設定ドキュメントのuserIDフィールドを返す。存在しない場合は空文字列。
func (p Preferences) UserID() string {
	return p.stringField("userID")
}

// Locale は設定ドキュメントのlocaleフィールドを返す。存在しない場合は空文字列。
func (p Preferences) Locale() string {
	return p.stringField("locale")
}

// Unit は設定ドキュメントのunitフィールドを返す。存在しない場合は空文字列。
func (p Preferences) Unit() string {
	return p.stringField("unit")
}

func (p Preferences) stringField(key string) string {
	data, ok := p.raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

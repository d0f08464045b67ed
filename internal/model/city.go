// Package model はドメインモデルを定義する。
package model

import "time"

// City はローカルDBにキャッシュされた都市の天気情報を表す。
// weather.comのお気に入り都市を同期した非正規化キャッシュであり、
// 同期のたびに名前をキーとしてアップサートされる。
type City struct {
	ID               string
	Name             string
	Temperature      int
	WeatherCondition string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

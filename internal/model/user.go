// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// WeatherIDTokenはweather.comログイン時に取得したidトークンで、
// 有効期限は管理せず、weather.com側が拒否した時点で無効とみなす。
type User struct {
	ID             string
	Email          string
	HashedPassword string
	WeatherIDToken string // weather.com未ログインの場合は空文字列
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

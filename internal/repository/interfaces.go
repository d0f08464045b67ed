// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tenkiman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateWeatherIDToken は天気サービスのセッショントークンを更新する。
	// ログイン成功時に保存し、以降の天気API呼び出しで使用する。
	UpdateWeatherIDToken(ctx context.Context, userID, idToken string) error

	// ListWithWeatherToken は天気サービスのセッショントークンを持つ全ユーザーを取得する。
	// 同期ワーカーが対象ユーザーを列挙するために使用する。
	ListWithWeatherToken(ctx context.Context) ([]*model.User, error)
}

// CityRepository は都市の天気キャッシュの永続化インターフェース。
type CityRepository interface {
	// UpsertByName は都市名で天気キャッシュを挿入または更新する。
	UpsertByName(ctx context.Context, city *model.City) error

	// List は全ての都市キャッシュを名前順で取得する。
	List(ctx context.Context) ([]*model.City, error)

	// FindByName は指定名の都市キャッシュを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.City, error)
}

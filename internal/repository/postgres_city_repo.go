package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tenkiman/internal/model"
)

// PostgresCityRepo はPostgreSQLを使用した都市天気キャッシュリポジトリ。
type PostgresCityRepo struct {
	db *sql.DB
}

// NewPostgresCityRepo はPostgresCityRepoを生成する。
func NewPostgresCityRepo(db *sql.DB) *PostgresCityRepo {
	return &PostgresCityRepo{db: db}
}

// UpsertByName は都市名で天気キャッシュを挿入または更新する。
// 同期ワーカーが周期的に呼び出すため、ON CONFLICTで冪等に動作する。
func (r *PostgresCityRepo) UpsertByName(ctx context.Context, city *model.City) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cities (id, name, temperature, weather_condition, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (name) DO UPDATE SET
		   temperature = EXCLUDED.temperature,
		   weather_condition = EXCLUDED.weather_condition,
		   updated_at = EXCLUDED.updated_at`,
		city.ID, city.Name, city.Temperature, city.WeatherCondition, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert city: %w", err)
	}

	return nil
}

// List は全ての都市キャッシュを名前順で取得する。
func (r *PostgresCityRepo) List(ctx context.Context) ([]*model.City, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, temperature, weather_condition, created_at, updated_at
		 FROM cities ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	var cities []*model.City
	for rows.Next() {
		city := &model.City{}
		err := rows.Scan(&city.ID, &city.Name, &city.Temperature, &city.WeatherCondition, &city.CreatedAt, &city.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cities: %w", err)
	}

	return cities, nil
}

// FindByName は指定名の都市キャッシュを取得する。見つからない場合はnilを返す。
func (r *PostgresCityRepo) FindByName(ctx context.Context, name string) (*model.City, error) {
	city := &model.City{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, temperature, weather_condition, created_at, updated_at
		 FROM cities WHERE name = $1`,
		name,
	).Scan(&city.ID, &city.Name, &city.Temperature, &city.WeatherCondition, &city.CreatedAt, &city.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find city by name: %w", err)
	}

	return city, nil
}

// compile-time interface check
var _ CityRepository = (*PostgresCityRepo)(nil)

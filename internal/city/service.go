// Package city はお気に入り都市の取得・追加・同期のビジネスロジックを提供する。
package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tenkiman/internal/metrics"
	"github.com/hitoshi/tenkiman/internal/model"
	"github.com/hitoshi/tenkiman/internal/repository"
	"github.com/hitoshi/tenkiman/internal/weather"
)

// WeatherClient はお気に入り都市の読み書きに必要なweather.comクライアントのインターフェース。
type WeatherClient interface {
	GetFavoriteCities(ctx context.Context, idToken string) ([]model.Location, error)
	AddFavoriteCities(ctx context.Context, idToken string, cityNames []string) ([]model.Location, error)
}

// WeatherMerger は都市リストへの天気情報マージのインターフェース。
type WeatherMerger interface {
	MergeWeather(ctx context.Context, locations []model.Location) []model.CityWeather
}

// Service はお気に入り都市に関するビジネスロジックを提供する。
// weather.com上のお気に入りが常に正で、ローカルDBはその同期キャッシュとなる。
type Service struct {
	users   repository.UserRepository
	cities  repository.CityRepository
	client  WeatherClient
	merger  WeatherMerger
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	cities repository.CityRepository,
	client WeatherClient,
	merger WeatherMerger,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:   users,
		cities:  cities,
		client:  client,
		merger:  merger,
		metrics: collector,
		logger:  logger,
	}
}

// weatherToken は指定ユーザーのweather.comセッショントークンを取得する。
// ユーザーが存在しない、またはセッション未確立の場合はweather.ErrUnauthenticatedを返す。
func (s *Service) weatherToken(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.WeatherIDToken == "" {
		return "", weather.ErrUnauthenticated
	}
	return user.WeatherIDToken, nil
}

// ListFavorites はユーザーのお気に入り都市を取得し、現在の天気をマージして返す。
// 個別の都市の天気取得失敗はHasReading=falseとして返し、全体は失敗させない。
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]model.CityWeather, error) {
	token, err := s.weatherToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	locations, err := s.client.GetFavoriteCities(ctx, token)
	if err != nil {
		s.metrics.RecordWeatherFetchFailure("favorites")
		return nil, err
	}

	merged := s.merger.MergeWeather(ctx, locations)
	s.metrics.RecordWeatherFetchSuccess()
	s.metrics.RecordWeatherFetchLatency(time.Since(start))

	return merged, nil
}

// AddFavorites は都市名を解決してユーザーのお気に入りに追加し、
// 追加後の全お気に入り都市に天気をマージして返す。
// 解決できない都市が1つでもあれば何も追加しない。
func (s *Service) AddFavorites(ctx context.Context, userID string, names []string) ([]model.CityWeather, error) {
	token, err := s.weatherToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	locations, err := s.client.AddFavoriteCities(ctx, token, names)
	if err != nil {
		var reqErr *weather.RequestError
		if errors.As(err, &reqErr) {
			for _, failed := range reqErr.FailedCities {
				s.metrics.RecordResolutionFailure(failed)
			}
		}
		return nil, err
	}

	s.logger.Info("favorite cities added",
		slog.String("user_id", userID),
		slog.Int("total", len(locations)),
	)

	return s.merger.MergeWeather(ctx, locations), nil
}

// SyncFavorites はユーザーのお気に入り都市の天気を取得し、ローカルキャッシュに保存する。
// 天気が取得できなかった都市はキャッシュを更新せずスキップする。
// 保存された都市数を返す。
func (s *Service) SyncFavorites(ctx context.Context, userID string) (int, error) {
	merged, err := s.ListFavorites(ctx, userID)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, cw := range merged {
		if !cw.HasReading {
			s.logger.Warn("skipping city without weather reading",
				slog.String("city", cw.Name),
			)
			continue
		}

		city := &model.City{
			ID:               uuid.New().String(),
			Name:             cw.Name,
			Temperature:      cw.TemperatureCelsius,
			WeatherCondition: cw.WeatherCondition,
		}
		if err := s.cities.UpsertByName(ctx, city); err != nil {
			return synced, fmt.Errorf("failed to cache city %s: %w", cw.Name, err)
		}
		synced++
	}

	s.metrics.RecordCitiesSynced(synced)
	s.logger.Info("favorite cities synced",
		slog.String("user_id", userID),
		slog.Int("synced", synced),
	)

	return synced, nil
}

// ListCached はローカルDBの都市天気キャッシュを返す。
// チャットアシスタントのコンテキストとして使用される。
func (s *Service) ListCached(ctx context.Context) ([]*model.City, error) {
	return s.cities.List(ctx)
}

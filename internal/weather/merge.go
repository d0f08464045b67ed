package weather

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/tenkiman/internal/model"
)

// ConditionFetcher は1都市分の天気取得のインターフェース。
// テスト時にモックに差し替え可能。
type ConditionFetcher interface {
	FetchConditions(ctx context.Context, placeID string) (*model.WeatherReading, error)
}

// Merger は複数のお気に入り都市に対する天気の並列取得とマージを行う。
//
// 取得は全都市同時に開始し、完了順に関わらず出力は入力順を保つ。
// 一部の都市の取得失敗はバッチ全体を失敗させず、該当エントリを
// HasReading=falseのまま残す（部分成功ポリシー）。エントリの削除や並べ替えは行わない。
type Merger struct {
	fetcher ConditionFetcher
	logger  *slog.Logger
}

// NewMerger はMergerの新しいインスタンスを生成する。
func NewMerger(fetcher ConditionFetcher, logger *slog.Logger) *Merger {
	return &Merger{
		fetcher: fetcher,
		logger:  logger,
	}
}

// MergeWeather は各エントリのplaceIDをキーに天気を並列取得し、
// 取得できたエントリに気温と天気をマージして返す。
// 入力n件に対して常にn件を入力順で返す。
func (m *Merger) MergeWeather(ctx context.Context, locations []model.Location) []model.CityWeather {
	results := make([]model.CityWeather, len(locations))
	for i, loc := range locations {
		results[i] = model.CityWeather{Location: loc}
	}

	var wg sync.WaitGroup
	for i, loc := range locations {
		wg.Add(1)
		go func(i int, placeID string) {
			defer wg.Done()

			reading, err := m.fetcher.FetchConditions(ctx, placeID)
			if err != nil {
				// 失敗したエントリは天気なしのまま残し、バッチは継続する
				m.logger.Warn("天気の取得に失敗しました",
					slog.String("place_id", placeID),
					slog.String("error", err.Error()),
				)
				return
			}

			results[i].TemperatureCelsius = reading.TemperatureCelsius
			results[i].WeatherCondition = reading.WeatherCondition
			results[i].HasReading = true
		}(i, loc.PlaceID)
	}
	wg.Wait()

	return results
}

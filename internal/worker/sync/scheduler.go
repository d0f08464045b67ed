// Package sync はお気に入り都市の天気キャッシュを定期同期する
// バックグラウンドジョブを提供する。天気サービスのセッショントークンを
// 持つ全ユーザーを対象に、semaphoreパターンで並列数を制御しながら
// 同期を実行する。上流の天気サービス障害時はサーキットブレーカーで
// 同期を一時停止し、無駄なリクエストを抑制する。
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hitoshi/tenkiman/internal/repository"
)

// CitySyncerService は単一ユーザーのお気に入り同期の実行インターフェース。
type CitySyncerService interface {
	// SyncFavorites はユーザーのお気に入り都市の天気を取得してキャッシュに保存し、
	// 保存した件数を返す。
	SyncFavorites(ctx context.Context, userID string) (int, error)
}

// Scheduler は天気キャッシュ同期のスケジューリングと並列制御を行う。
// 15分間隔のティッカーで同期対象ユーザーを取得し、
// semaphoreパターンで最大並列数を制御しながら同期を実行する。
type Scheduler struct {
	userRepo       repository.UserRepository
	syncer         CitySyncerService
	logger         *slog.Logger
	maxConcurrency int
	breaker        *gobreaker.CircuitBreaker
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	userRepo repository.UserRepository,
	syncer CitySyncerService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}

	s := &Scheduler{
		userRepo:       userRepo,
		syncer:         syncer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}

	// 連続5回以上の失敗で回路を開き、1分後に半開状態で再試行する。
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "weather-sync",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("同期サーキットブレーカーの状態が変化しました",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return s
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("天気同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("天気同期スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は同期対象ユーザーを1回取得し、並列で天気同期を実行する。
// semaphoreパターンで最大並列数を制御する。
// 個々のユーザーの同期失敗はログに記録し、サイクル全体は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	users, err := s.userRepo.ListWithWeatherToken(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		s.logger.Info("同期対象のユーザーはいません")
		return nil
	}

	s.logger.Info("同期サイクルを開始します",
		slog.Int("user_count", len(users)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	totalSynced := 0

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			result, err := s.breaker.Execute(func() (interface{}, error) {
				return s.syncer.SyncFavorites(ctx, userID)
			})
			if err != nil {
				s.logger.Error("ユーザーの天気同期に失敗しました",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				return
			}

			synced := result.(int)
			mu.Lock()
			totalSynced += synced
			mu.Unlock()
		}(user.ID)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("同期サイクルが完了しました",
		slog.Int("user_count", len(users)),
		slog.Int("synced_count", totalSynced),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenkiman/internal/metrics"
	"github.com/hitoshi/tenkiman/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenParser       middleware.TokenParser
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	UserService UserServiceInterface
	CityService CityServiceInterface
	ChatAgent   ChatAgentInterface
	Metrics     metrics.MetricsCollector

	// Prometheusレジストリ（/metrics公開用）
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Auth → RateLimit(General)]
//
// 未認証ルート（signup / login / health / metrics）は認証ミドルウェアの外に配置し、
// loginにはIP単位の専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	userHandler := NewUserHandler(deps.UserService)
	cityHandler := NewCityHandler(deps.CityService)
	chatHandler := NewChatHandler(deps.ChatAgent, deps.CityService, deps.Metrics)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", userHandler.Signup)
		// ログインには総当たり対策のIP単位レート制限を適用
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", userHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenParser))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/v1/users/me", userHandler.Me)

		// お気に入り都市管理
		r.Route("/api/v1/cities", func(r chi.Router) {
			r.Get("/", cityHandler.ListCached)
			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", cityHandler.ListFavorites)
				r.Post("/", cityHandler.AddFavorites)
				r.Post("/sync", cityHandler.Sync)
			})
		})

		// 天気アシスタント
		r.Route("/api/v1/chat", func(r chi.Router) {
			r.Post("/summary", chatHandler.Summary)
			r.Post("/ask", chatHandler.Ask)
		})
	})

	return r
}

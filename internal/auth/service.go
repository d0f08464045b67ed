package auth

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
)

// ErrUserExists は登録済みメールアドレスでのサインアップを表す。
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials はメールアドレスまたはパスワードの不一致を表す。
var ErrInvalidCredentials = errors.New("invalid email or password")

// WeatherAuthenticator はweather.comへのログインのインターフェース。
// ログイン成功時にセッショントークン（id_tokenクッキーの値）を返す。
type WeatherAuthenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	weather  WeatherAuthenticator
	tokens   *TokenManager
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, weather WeatherAuthenticator, tokens *TokenManager, collector metrics.MetricsCollector, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		weather:  weather,
		tokens:   tokens,
		metrics:  collector,
		logger:   logger,
	}
}

// Signup は新規ユーザーを登録する。
// 登録済みメールアドレスの場合はErrUserExistsを返す。
func (s *Service) Signup(ctx context.Context, email, password string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          email,
		HashedPassword: hashed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login はユーザーを認証し、アクセストークンを発行する。
// ローカルのbcrypt検証に成功した後、同一クレデンシャルでweather.comにも
// ログインを試行し、取得したセッショントークンをユーザーに保存する。
// weather.com側のログイン失敗はローカルログインを妨げない。天気機能は
// 次回ログインでセッションが確立されるまで認証エラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !VerifyPassword(user.HashedPassword, password) {
		return "", nil, ErrInvalidCredentials
	}

	idToken, err := s.weather.Login(ctx, email, password)
	if err != nil {
		s.metrics.RecordWeatherLoginFailure()
		s.logger.Warn("weather.com login failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		if err := s.userRepo.UpdateWeatherIDToken(ctx, user.ID, idToken); err != nil {
			return "", nil, fmt.Errorf("failed to persist weather session: %w", err)
		}
		user.WeatherIDToken = idToken
		s.metrics.RecordWeatherLoginSuccess()
	}

	accessToken, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("weather_session", user.WeatherIDToken != ""),
	)

	return accessToken, user, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

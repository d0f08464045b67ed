package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tenkiman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, weather_id_token, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, weather_id_token, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, hashed_password, weather_id_token, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		user.ID, user.Email, user.HashedPassword, user.WeatherIDToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdateWeatherIDToken は天気サービスのセッショントークンを更新する。
func (r *PostgresUserRepo) UpdateWeatherIDToken(ctx context.Context, userID, idToken string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET weather_id_token = NULLIF($1, ''), updated_at = $2 WHERE id = $3`,
		idToken, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update weather ID token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// ListWithWeatherToken は天気サービスのセッショントークンを持つ全ユーザーを取得する。
func (r *PostgresUserRepo) ListWithWeatherToken(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, hashed_password, weather_id_token, created_at, updated_at
		 FROM users WHERE weather_id_token IS NOT NULL ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with weather token: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser は1行分のユーザーレコードをモデルに変換する。
// weather_id_tokenはNULL許容のためNullString経由で読み取る。
func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var idToken sql.NullString
	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &idToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.WeatherIDToken = idToken.String
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

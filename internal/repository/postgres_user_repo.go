package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/tsunagu/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, bio, avatar_ref, active, home_instance, created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.Username, &user.PasswordHash, &user.Bio, &user.AvatarRef,
		&user.Active, &user.HomeInstance, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// ユーザー名が重複している場合はmodel.APIError（USERNAME_TAKEN）を返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, bio, avatar_ref, active, home_instance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.Username, user.PasswordHash, user.Bio, user.AvatarRef,
		user.Active, user.HomeInstance, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// 23505 = unique_violation
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.NewUsernameTakenError(user.Username)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// EnsureRemote はリモートユーザーのスタブを冪等に作成する。
func (r *PostgresUserRepo) EnsureRemote(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, bio, avatar_ref, active, home_instance, created_at, updated_at)
		 VALUES ($1, '', '', $2, TRUE, $3, $4, $4)
		 ON CONFLICT (username) DO NOTHING`,
		user.Username, user.AvatarRef, user.HomeInstance, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure remote user: %w", err)
	}
	return nil
}

// SearchByUsername はユーザー名の部分一致でローカルユーザーを検索する。
func (r *PostgresUserRepo) SearchByUsername(ctx context.Context, query string, limit int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, password_hash, bio, avatar_ref, active, home_instance, created_at, updated_at
		 FROM users
		 WHERE home_instance = '' AND username ILIKE '%' || $1 || '%'
		 ORDER BY username
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.Username, &user.PasswordHash, &user.Bio, &user.AvatarRef,
			&user.Active, &user.HomeInstance, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// UpdateBio はユーザーの自己紹介を更新する。
func (r *PostgresUserRepo) UpdateBio(ctx context.Context, username, bio string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET bio = $1, updated_at = now() WHERE username = $2`,
		bio, username,
	)
	if err != nil {
		return fmt.Errorf("failed to update bio: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError(username)
	}
	return nil
}

// UpdateAvatar はユーザーのアバター参照を更新する。
func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, username, avatarRef string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_ref = $1, updated_at = now() WHERE username = $2`,
		avatarRef, username,
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError(username)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/tsunagu/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create はフォローエッジを作成する。
// 既にエッジが存在する場合はmodel.APIError（ALREADY_FOLLOWING）を返す。
func (r *PostgresFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower, followee, created_at) VALUES ($1, $2, $3)`,
		follow.Follower, follow.Followee, follow.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.NewAlreadyFollowingError(follow.Followee)
		}
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	return nil
}

// Exists は指定の組のフォローエッジが存在するかを返す。
func (r *PostgresFollowRepo) Exists(ctx context.Context, follower, followee string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower = $1 AND followee = $2)`,
		follower, followee,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// ListFollowers は指定ユーザーをフォローしているエッジ一覧を返す。
func (r *PostgresFollowRepo) ListFollowers(ctx context.Context, username string) ([]*model.Follow, error) {
	return r.list(ctx,
		`SELECT follower, followee, created_at FROM follows WHERE followee = $1 ORDER BY created_at`,
		username,
	)
}

// ListFollowing は指定ユーザーがフォローしているエッジ一覧を返す。
func (r *PostgresFollowRepo) ListFollowing(ctx context.Context, username string) ([]*model.Follow, error) {
	return r.list(ctx,
		`SELECT follower, followee, created_at FROM follows WHERE follower = $1 ORDER BY created_at`,
		username,
	)
}

// CountFollowers は指定ユーザーのフォロワー数を返す。
func (r *PostgresFollowRepo) CountFollowers(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE followee = $1`,
		username,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// CountFollowing は指定ユーザーのフォロー数を返す。
func (r *PostgresFollowRepo) CountFollowing(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower = $1`,
		username,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

// list はフォローエッジのクエリ実行と行スキャンの共通処理。
func (r *PostgresFollowRepo) list(ctx context.Context, query, arg string) ([]*model.Follow, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	defer rows.Close()

	var follows []*model.Follow
	for rows.Next() {
		f := &model.Follow{}
		if err := rows.Scan(&f.Follower, &f.Followee, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow row: %w", err)
		}
		follows = append(follows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow rows: %w", err)
	}

	return follows, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)

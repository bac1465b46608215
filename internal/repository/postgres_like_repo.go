package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/tsunagu/internal/model"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// Create はいいねを作成する。
// 既にいいね済みの場合はmodel.APIError（ALREADY_LIKED）を返す。
func (r *PostgresLikeRepo) Create(ctx context.Context, like *model.Like) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (post_id, author, created_at) VALUES ($1, $2, $3)`,
		like.PostID, like.Author, like.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.NewAlreadyLikedError(like.PostID)
		}
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

// Exists は指定の組のいいねが存在するかを返す。
func (r *PostgresLikeRepo) Exists(ctx context.Context, postID, author string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE post_id = $1 AND author = $2)`,
		postID, author,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like existence: %w", err)
	}
	return exists, nil
}

// ListByPostID は指定投稿のいいね一覧を返す。
func (r *PostgresLikeRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Like, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, author, created_at FROM likes WHERE post_id = $1 ORDER BY created_at`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	defer rows.Close()

	var likes []*model.Like
	for rows.Next() {
		l := &model.Like{}
		if err := rows.Scan(&l.PostID, &l.Author, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan like row: %w", err)
		}
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate like rows: %w", err)
	}

	return likes, nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tsunagu/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
// リレーの再送で同一IDが二重に届いた場合は冪等に無視する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author, text, latitude, longitude, photo_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		post.ID, post.Author, post.Text, post.Latitude, post.Longitude, post.PhotoRef, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author, text, latitude, longitude, photo_ref, created_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.Author, &post.Text, &post.Latitude, &post.Longitude,
		&post.PhotoRef, &post.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}

	return post, nil
}

// ListFeed は指定ユーザー自身とフォロー中ユーザーの投稿をcreated_at降順で返す。
func (r *PostgresPostRepo) ListFeed(ctx context.Context, username string, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author, text, latitude, longitude, photo_ref, created_at
		 FROM posts
		 WHERE author = $1
		    OR author IN (SELECT followee FROM follows WHERE follower = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(&post.ID, &post.Author, &post.Text, &post.Latitude,
			&post.Longitude, &post.PhotoRef, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// CountByAuthor は指定ユーザーの投稿数を返す。
func (r *PostgresPostRepo) CountByAuthor(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE author = $1`,
		username,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)

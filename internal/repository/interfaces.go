// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複している場合はエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// EnsureRemote はリモートユーザーのスタブを冪等に作成する。
	// 既に存在する場合は何もしない。
	EnsureRemote(ctx context.Context, user *model.User) error

	// SearchByUsername はユーザー名の部分一致でローカルユーザーを検索する。
	SearchByUsername(ctx context.Context, query string, limit int) ([]*model.User, error)

	// UpdateBio はユーザーの自己紹介を更新する。
	UpdateBio(ctx context.Context, username, bio string) error

	// UpdateAvatar はユーザーのアバター参照を更新する。
	UpdateAvatar(ctx context.Context, username, avatarRef string) error
}

// TokenRepository はベアラートークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.Token) error

	// FindByID は指定IDのトークンを取得する。期限切れまたは未登録の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Token, error)

	// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Create はフォローエッジを作成する。
	Create(ctx context.Context, follow *model.Follow) error

	// Exists は指定の組のフォローエッジが存在するかを返す。
	Exists(ctx context.Context, follower, followee string) (bool, error)

	// ListFollowers は指定ユーザーをフォローしているエッジ一覧を返す。
	ListFollowers(ctx context.Context, username string) ([]*model.Follow, error)

	// ListFollowing は指定ユーザーがフォローしているエッジ一覧を返す。
	ListFollowing(ctx context.Context, username string) ([]*model.Follow, error)

	// CountFollowers は指定ユーザーのフォロワー数を返す。
	CountFollowers(ctx context.Context, username string) (int, error)

	// CountFollowing は指定ユーザーのフォロー数を返す。
	CountFollowing(ctx context.Context, username string) (int, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListFeed は指定ユーザー自身とフォロー中ユーザーの投稿を
	// created_at降順で返す。
	ListFeed(ctx context.Context, username string, limit int) ([]*model.Post, error)

	// CountByAuthor は指定ユーザーの投稿数を返す。
	CountByAuthor(ctx context.Context, username string) (int, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByPostID は指定投稿のコメント一覧をcreated_at昇順で返す。
	ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error)
}

// LikeRepository はいいねデータの永続化インターフェース。
type LikeRepository interface {
	// Create はいいねを作成する。
	Create(ctx context.Context, like *model.Like) error

	// Exists は指定の組のいいねが存在するかを返す。
	Exists(ctx context.Context, postID, author string) (bool, error)

	// ListByPostID は指定投稿のいいね一覧を返す。
	ListByPostID(ctx context.Context, postID string) ([]*model.Like, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Package post は投稿・コメント・いいねのドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsunagu/internal/federation"
	"github.com/hitoshi/tsunagu/internal/model"
	"github.com/hitoshi/tsunagu/internal/repository"
	"github.com/hitoshi/tsunagu/internal/security"
)

// feedLimit はフィード取得の最大件数。
const feedLimit = 100

// MediaSaver は投稿写真の保存インターフェース。media.Storeの部分集合。
type MediaSaver interface {
	Save(r io.Reader, originalName string) (string, int64, error)
}

// PostRelay は投稿・コメント・いいねのフェデレーション伝播インターフェース。
// federation.Relayの部分集合として定義する。
type PostRelay interface {
	PostCreated(hosts []string, payload federation.PostPayload)
	CommentCreated(host string, payload federation.CommentPayload)
	LikeCreated(host string, payload federation.LikePayload)
}

// MediaMetrics はメディア保存量のメトリクス記録インターフェース。
type MediaMetrics interface {
	RecordMediaStored(bytes int64)
}

// ServiceConfig は投稿サービスの設定。
type ServiceConfig struct {
	InstanceHost string // 自インスタンスのホスト名
	MediaBaseURL string // リレー時に写真参照を絶対URL化するためのベースURL
	LikeUnique   bool   // いいねの一意制約を適用する（falseの場合は重複を黙って受理）
}

// Service は投稿・コメント・いいねのサービス層。
type Service struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	sanitizer   security.TextSanitizerService
	media       MediaSaver
	relay       PostRelay
	metrics     MediaMetrics
	config      ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	sanitizer security.TextSanitizerService,
	media MediaSaver,
	relay PostRelay,
	metrics MediaMetrics,
	config ServiceConfig,
) *Service {
	return &Service{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		followRepo:  followRepo,
		sanitizer:   sanitizer,
		media:       media,
		relay:       relay,
		metrics:     metrics,
		config:      config,
	}
}

// CreatePost は投稿を作成し、リモートフォロワーのホームインスタンスへ伝播する。
// photoがnilでない場合は写真をメディアストアへ保存する。
// リレーはベストエフォートで、失敗してもローカルの書き込みは取り消さない。
func (s *Service) CreatePost(ctx context.Context, author, text string, latitude, longitude float64, photo io.Reader, photoName string) (*model.Post, error) {
	var photoRef string
	if photo != nil {
		ref, size, err := s.media.Save(photo, photoName)
		if err != nil {
			return nil, model.NewInvalidRequestError("写真を保存できません")
		}
		photoRef = ref
		if s.metrics != nil {
			s.metrics.RecordMediaStored(size)
		}
	}

	newPost := &model.Post{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      s.sanitizer.Sanitize(text),
		Latitude:  latitude,
		Longitude: longitude,
		PhotoRef:  photoRef,
		CreatedAt: time.Now(),
	}

	if err := s.postRepo.Create(ctx, newPost); err != nil {
		return nil, err
	}

	// リモートフォロワーのホームインスタンスを重複排除して伝播する
	hosts, err := s.remoteFollowerHosts(ctx, author)
	if err != nil {
		// 伝播先の解決失敗はローカル書き込みの成功を覆さない
		slog.Warn("failed to resolve remote follower hosts",
			slog.String("author", author),
			slog.String("error", err.Error()),
		)
	} else if len(hosts) > 0 {
		s.relay.PostCreated(hosts, federation.PostPayload{
			ID:        newPost.ID,
			Author:    federation.Qualify(author, s.config.InstanceHost),
			Text:      newPost.Text,
			Latitude:  newPost.Latitude,
			Longitude: newPost.Longitude,
			PhotoURL:  s.photoURL(photoRef),
			CreatedAt: newPost.CreatedAt,
		})
	}

	slog.Info("post created",
		slog.String("post_id", newPost.ID),
		slog.String("author", author),
	)
	return newPost, nil
}

// Feed は指定ユーザー自身とフォロー中ユーザーの投稿を新しい順で返す。
func (s *Service) Feed(ctx context.Context, username string) ([]*model.Post, error) {
	posts, err := s.postRepo.ListFeed(ctx, username, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return posts, nil
}

// GetPost は指定IDの投稿を取得する。存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// Comments は指定投稿のコメント一覧を返す。投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) Comments(ctx context.Context, postID string) ([]*model.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Likes は指定投稿のいいね一覧を返す。投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) Likes(ctx context.Context, postID string) ([]*model.Like, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	likes, err := s.likeRepo.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	return likes, nil
}

// CreateComment はコメントを作成する。投稿が存在しない場合はPOST_NOT_FOUNDを返す。
// 投稿者がリモートユーザーの場合、投稿者のホームインスタンスへ伝播する。
func (s *Service) CreateComment(ctx context.Context, author, postID, text string) (*model.Comment, error) {
	target, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		Author:    author,
		Text:      s.sanitizer.Sanitize(text),
		CreatedAt: time.Now(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.relayToPostOwner(target, func(host string) {
		s.relay.CommentCreated(host, federation.CommentPayload{
			ID:        comment.ID,
			PostID:    comment.PostID,
			Author:    federation.Qualify(author, s.config.InstanceHost),
			Text:      comment.Text,
			CreatedAt: comment.CreatedAt,
		})
	})

	return comment, nil
}

// CreateLike はいいねを作成する。投稿が存在しない場合はPOST_NOT_FOUNDを返す。
// LikeUniqueが有効な場合、重複いいねはALREADY_LIKEDを返す。
// 無効な場合は重複を黙って受理する（冪等）。
// 投稿者がリモートユーザーの場合、投稿者のホームインスタンスへ伝播する。
func (s *Service) CreateLike(ctx context.Context, author, postID string) error {
	target, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	if !s.config.LikeUnique {
		exists, err := s.likeRepo.Exists(ctx, postID, author)
		if err != nil {
			return fmt.Errorf("failed to check like existence: %w", err)
		}
		if exists {
			return nil
		}
	}

	like := &model.Like{
		PostID:    postID,
		Author:    author,
		CreatedAt: time.Now(),
	}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		return err
	}

	s.relayToPostOwner(target, func(host string) {
		s.relay.LikeCreated(host, federation.LikePayload{
			PostID:    postID,
			Author:    federation.Qualify(author, s.config.InstanceHost),
			CreatedAt: like.CreatedAt,
		})
	})

	return nil
}

// remoteFollowerHosts はauthorのリモートフォロワーのホームインスタンスを
// 重複排除して返す。
func (s *Service) remoteFollowerHosts(ctx context.Context, author string) ([]string, error) {
	follows, err := s.followRepo.ListFollowers(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	seen := make(map[string]bool)
	var hosts []string
	for _, f := range follows {
		addr, err := federation.ParseAddress(f.Follower, s.config.InstanceHost)
		if err != nil || !addr.IsRemote() {
			continue
		}
		if !seen[addr.Host] {
			seen[addr.Host] = true
			hosts = append(hosts, addr.Host)
		}
	}

	return hosts, nil
}

// relayToPostOwner は投稿者がリモートユーザーの場合にfnを実行する。
func (s *Service) relayToPostOwner(target *model.Post, fn func(host string)) {
	addr, err := federation.ParseAddress(target.Author, s.config.InstanceHost)
	if err != nil || !addr.IsRemote() {
		return
	}
	fn(addr.Host)
}

// photoURL はメディア参照をリレー用の絶対URLに変換する。
// 参照が空の場合は空文字列を返す。
func (s *Service) photoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/client/media/?url=%s", s.config.MediaBaseURL, ref)
}

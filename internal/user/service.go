// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/hitoshi/tsunagu/internal/federation"
	"github.com/hitoshi/tsunagu/internal/model"
	"github.com/hitoshi/tsunagu/internal/repository"
	"github.com/hitoshi/tsunagu/internal/security"
)

// searchLimit はユーザー検索の最大件数。
const searchLimit = 50

// usernamePattern はローカルユーザー名として許可する形式。
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

// PasswordHasher はパスワードハッシュ化のインターフェース。
// auth.PasswordHasherの部分集合として定義する。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// MediaSaver はアバター画像の保存インターフェース。media.Storeの部分集合。
type MediaSaver interface {
	Save(r io.Reader, originalName string) (string, int64, error)
}

// FollowRelay はフォロー作成のフェデレーション伝播インターフェース。
// federation.Relayの部分集合として定義する。
type FollowRelay interface {
	FollowCreated(host string, payload federation.FollowPayload)
}

// MediaMetrics はメディア保存量のメトリクス記録インターフェース。
type MediaMetrics interface {
	RecordMediaStored(bytes int64)
}

// Profile はユーザープロフィールの読み取りビュー。
type Profile struct {
	User      *model.User
	Followers int
	Following int
	Posts     int
}

// Service はユーザー管理のサービス層。
// サインアップ、プロフィール、検索、フォロー、自己紹介・アバター更新を提供する。
type Service struct {
	userRepo     repository.UserRepository
	followRepo   repository.FollowRepository
	postRepo     repository.PostRepository
	hasher       PasswordHasher
	sanitizer    security.TextSanitizerService
	media        MediaSaver
	relay        FollowRelay
	metrics      MediaMetrics
	instanceHost string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	postRepo repository.PostRepository,
	hasher PasswordHasher,
	sanitizer security.TextSanitizerService,
	media MediaSaver,
	relay FollowRelay,
	metrics MediaMetrics,
	instanceHost string,
) *Service {
	return &Service{
		userRepo:     userRepo,
		followRepo:   followRepo,
		postRepo:     postRepo,
		hasher:       hasher,
		sanitizer:    sanitizer,
		media:        media,
		relay:        relay,
		metrics:      metrics,
		instanceHost: instanceHost,
	}
}

// Signup は新規ローカルユーザーを作成する。
// ユーザー名が既に使用されている場合はUSERNAME_TAKENを返す。
func (s *Service) Signup(ctx context.Context, username, password, bio string) error {
	if !usernamePattern.MatchString(username) {
		return model.NewInvalidRequestError("ユーザー名は英数字とアンダースコア1〜64文字で指定してください")
	}
	if password == "" {
		return model.NewInvalidRequestError("パスワードが空です")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	newUser := &model.User{
		Username:     username,
		PasswordHash: hash,
		Bio:          s.sanitizer.Sanitize(bio),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return err
	}

	slog.Info("new user created", slog.String("username", username))
	return nil
}

// Profile は指定ユーザーのプロフィールを取得する。
// ユーザーが存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Profile(ctx context.Context, username string) (*Profile, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	followers, err := s.followRepo.CountFollowers(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := s.followRepo.CountFollowing(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	posts, err := s.postRepo.CountByAuthor(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	return &Profile{
		User:      user,
		Followers: followers,
		Following: following,
		Posts:     posts,
	}, nil
}

// Search はユーザー名の部分一致でローカルユーザーを検索する。
func (s *Service) Search(ctx context.Context, query string) ([]*model.User, error) {
	if query == "" {
		return nil, model.NewInvalidRequestError("検索クエリが空です")
	}

	users, err := s.userRepo.SearchByUsername(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}

// Follow はrequesterからtargetへのフォローエッジを作成する。
// targetが "name@host" 形式のリモートユーザーの場合はスタブを作成したうえで
// フォロー先のホームインスタンスへリレーする。
// 対象が存在しない場合はUSER_NOT_FOUND、既にフォロー済みの場合は
// ALREADY_FOLLOWINGを返す。
func (s *Service) Follow(ctx context.Context, requester, target string) error {
	addr, err := federation.ParseAddress(target, s.instanceHost)
	if err != nil {
		return model.NewInvalidRequestError("フォロー対象のユーザー名が不正です")
	}

	if addr.String() == requester {
		return model.NewInvalidRequestError("自分自身はフォローできません")
	}

	if addr.IsRemote() {
		// リモートユーザー: ローカルにスタブを確保してからエッジを作成する
		stub := &model.User{
			Username:     addr.String(),
			Active:       true,
			HomeInstance: addr.Host,
			CreatedAt:    time.Now(),
		}
		if err := s.userRepo.EnsureRemote(ctx, stub); err != nil {
			return err
		}
	} else {
		target = addr.String()
		user, err := s.userRepo.FindByUsername(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return model.NewUserNotFoundError(target)
		}
	}

	follow := &model.Follow{
		Follower:  requester,
		Followee:  addr.String(),
		CreatedAt: time.Now(),
	}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		return err
	}

	if addr.IsRemote() {
		// フォロー先のホームインスタンスへベストエフォートで伝播する
		s.relay.FollowCreated(addr.Host, federation.FollowPayload{
			Follower: federation.Qualify(requester, s.instanceHost),
			Followee: addr.Name,
		})
	}

	slog.Info("follow created",
		slog.String("follower", requester),
		slog.String("followee", addr.String()),
	)
	return nil
}

// Followers は指定ユーザーをフォローしているエッジ一覧を返す。
func (s *Service) Followers(ctx context.Context, username string) ([]*model.Follow, error) {
	follows, err := s.followRepo.ListFollowers(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return follows, nil
}

// Following は指定ユーザーがフォローしているエッジ一覧を返す。
func (s *Service) Following(ctx context.Context, username string) ([]*model.Follow, error) {
	follows, err := s.followRepo.ListFollowing(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return follows, nil
}

// UpdateBio はユーザーの自己紹介を更新する。保存前にサニタイズする。
func (s *Service) UpdateBio(ctx context.Context, username, bio string) error {
	return s.userRepo.UpdateBio(ctx, username, s.sanitizer.Sanitize(bio))
}

// UpdateAvatar はアップロードされたアバター画像を保存し、ユーザーの
// アバター参照を更新する。
func (s *Service) UpdateAvatar(ctx context.Context, username string, file io.Reader, filename string) (string, error) {
	ref, size, err := s.media.Save(file, filename)
	if err != nil {
		return "", model.NewInvalidRequestError("アバター画像を保存できません")
	}

	if err := s.userRepo.UpdateAvatar(ctx, username, ref); err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordMediaStored(size)
	}

	slog.Info("avatar updated",
		slog.String("username", username),
		slog.String("avatar_ref", ref),
	)
	return ref, nil
}

package federation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsunagu/internal/model"
	"github.com/hitoshi/tsunagu/internal/repository"
	"github.com/hitoshi/tsunagu/internal/security"
)

// inboundSearchLimit はサーバー間ユーザー検索の最大件数。
const inboundSearchLimit = 50

// Inbound は他インスタンスから受信したサーバー間リクエストを適用するサービス。
// 操作主体（actor）はペイロードに "name@host" 形式で含まれることを前提とし、
// 受信時にリモートユーザーのスタブをローカルに確保する。
type Inbound struct {
	userRepo     repository.UserRepository
	followRepo   repository.FollowRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	likeRepo     repository.LikeRepository
	sanitizer    security.TextSanitizerService
	instanceHost string
	likeUnique   bool
}

// NewInbound はInboundの新しいインスタンスを生成する。
func NewInbound(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	sanitizer security.TextSanitizerService,
	instanceHost string,
	likeUnique bool,
) *Inbound {
	return &Inbound{
		userRepo:     userRepo,
		followRepo:   followRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		likeRepo:     likeRepo,
		sanitizer:    sanitizer,
		instanceHost: instanceHost,
		likeUnique:   likeUnique,
	}
}

// Search はサーバー間のユーザー検索を処理する。ローカルユーザーのみ返す。
func (in *Inbound) Search(ctx context.Context, query string) ([]*model.User, error) {
	if query == "" {
		return nil, model.NewInvalidRequestError("検索クエリが空です")
	}

	users, err := in.userRepo.SearchByUsername(ctx, query, inboundSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// HandleFollow は他インスタンスから届いたフォローを適用する。
// フォロー先はこのインスタンスのローカルユーザーでなければならない。
// 重複フォローはALREADY_FOLLOWINGを返す。
func (in *Inbound) HandleFollow(ctx context.Context, p FollowPayload) error {
	follower, err := in.ensureRemoteActor(ctx, p.Follower)
	if err != nil {
		return err
	}

	followee, err := ParseAddress(p.Followee, in.instanceHost)
	if err != nil || followee.IsRemote() {
		return model.NewInvalidRequestError("フォロー先がこのインスタンスのユーザーではありません")
	}

	user, err := in.userRepo.FindByUsername(ctx, followee.Name)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(followee.Name)
	}

	follow := &model.Follow{
		Follower:  follower,
		Followee:  followee.Name,
		CreatedAt: time.Now(),
	}
	if err := in.followRepo.Create(ctx, follow); err != nil {
		return err
	}

	slog.Info("federated follow applied",
		slog.String("follower", follower),
		slog.String("followee", followee.Name),
	)
	return nil
}

// HandlePost は他インスタンスから届いた投稿を適用する。
// 写真は参照URLのまま保持し、ローカルには複製しない。
func (in *Inbound) HandlePost(ctx context.Context, p PostPayload) error {
	author, err := in.ensureRemoteActor(ctx, p.Author)
	if err != nil {
		return err
	}

	id := p.ID
	if _, err := uuid.Parse(id); err != nil {
		return model.NewInvalidRequestError("投稿IDが不正です")
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	newPost := &model.Post{
		ID:        id,
		Author:    author,
		Text:      in.sanitizer.Sanitize(p.Text),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		PhotoRef:  p.PhotoURL,
		CreatedAt: createdAt,
	}
	if err := in.postRepo.Create(ctx, newPost); err != nil {
		return err
	}

	slog.Info("federated post applied",
		slog.String("post_id", id),
		slog.String("author", author),
	)
	return nil
}

// HandleComment は他インスタンスから届いたコメントを適用する。
// 対象の投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (in *Inbound) HandleComment(ctx context.Context, p CommentPayload) error {
	author, err := in.ensureRemoteActor(ctx, p.Author)
	if err != nil {
		return err
	}

	if err := in.requirePost(ctx, p.PostID); err != nil {
		return err
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	comment := &model.Comment{
		ID:        id,
		PostID:    p.PostID,
		Author:    author,
		Text:      in.sanitizer.Sanitize(p.Text),
		CreatedAt: createdAt,
	}
	if err := in.commentRepo.Create(ctx, comment); err != nil {
		return err
	}

	slog.Info("federated comment applied",
		slog.String("post_id", p.PostID),
		slog.String("author", author),
	)
	return nil
}

// HandleLike は他インスタンスから届いたいいねを適用する。
// 対象の投稿が存在しない場合はPOST_NOT_FOUNDを返す。
// 一意制約が無効な場合、重複いいねは黙って受理する（冪等）。
func (in *Inbound) HandleLike(ctx context.Context, p LikePayload) error {
	author, err := in.ensureRemoteActor(ctx, p.Author)
	if err != nil {
		return err
	}

	if err := in.requirePost(ctx, p.PostID); err != nil {
		return err
	}

	if !in.likeUnique {
		exists, err := in.likeRepo.Exists(ctx, p.PostID, author)
		if err != nil {
			return fmt.Errorf("failed to check like existence: %w", err)
		}
		if exists {
			return nil
		}
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	like := &model.Like{
		PostID:    p.PostID,
		Author:    author,
		CreatedAt: createdAt,
	}
	if err := in.likeRepo.Create(ctx, like); err != nil {
		return err
	}

	slog.Info("federated like applied",
		slog.String("post_id", p.PostID),
		slog.String("author", author),
	)
	return nil
}

// ensureRemoteActor は "name@host" 形式のactorを検証し、リモートユーザーの
// スタブをローカルに確保したうえで正規化済みユーザー名を返す。
// 自インスタンスのホストが付いたactorはローカル名に正規化される。
func (in *Inbound) ensureRemoteActor(ctx context.Context, actor string) (string, error) {
	addr, err := ParseAddress(actor, in.instanceHost)
	if err != nil {
		return "", model.NewInvalidRequestError("操作主体のユーザー名が不正です")
	}

	if !addr.IsRemote() {
		// 自インスタンス発の名前はスタブ不要。ローカルに存在することだけ確認する。
		user, err := in.userRepo.FindByUsername(ctx, addr.Name)
		if err != nil {
			return "", fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return "", model.NewUserNotFoundError(addr.Name)
		}
		return addr.Name, nil
	}

	stub := &model.User{
		Username:     addr.String(),
		Active:       true,
		HomeInstance: addr.Host,
		CreatedAt:    time.Now(),
	}
	if err := in.userRepo.EnsureRemote(ctx, stub); err != nil {
		return "", err
	}

	return addr.String(), nil
}

// requirePost は投稿の存在を確認する。
func (in *Inbound) requirePost(ctx context.Context, postID string) error {
	post, err := in.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}
	return nil
}

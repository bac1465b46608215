package federation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsunagu/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	ensureRemoteFn   func(ctx context.Context, user *model.User) error
	searchFn         func(ctx context.Context, query string, limit int) ([]*model.User, error)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) EnsureRemote(ctx context.Context, user *model.User) error {
	if m.ensureRemoteFn != nil {
		return m.ensureRemoteFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) SearchByUsername(ctx context.Context, query string, limit int) ([]*model.User, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}
func (m *mockUserRepo) UpdateBio(ctx context.Context, username, bio string) error    { return nil }
func (m *mockUserRepo) UpdateAvatar(ctx context.Context, username, ref string) error { return nil }

type mockFollowRepo struct {
	createFn func(ctx context.Context, follow *model.Follow) error
}

func (m *mockFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	if m.createFn != nil {
		return m.createFn(ctx, follow)
	}
	return nil
}
func (m *mockFollowRepo) Exists(ctx context.Context, follower, followee string) (bool, error) {
	return false, nil
}
func (m *mockFollowRepo) ListFollowers(ctx context.Context, username string) ([]*model.Follow, error) {
	return nil, nil
}
func (m *mockFollowRepo) ListFollowing(ctx context.Context, username string) ([]*model.Follow, error) {
	return nil, nil
}
func (m *mockFollowRepo) CountFollowers(ctx context.Context, username string) (int, error) {
	return 0, nil
}
func (m *mockFollowRepo) CountFollowing(ctx context.Context, username string) (int, error) {
	return 0, nil
}

type mockPostRepo struct {
	createFn   func(ctx context.Context, post *model.Post) error
	findByIDFn func(ctx context.Context, id string) (*model.Post, error)
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}
func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockPostRepo) ListFeed(ctx context.Context, username string, limit int) ([]*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) CountByAuthor(ctx context.Context, username string) (int, error) {
	return 0, nil
}

type mockCommentRepo struct {
	createFn func(ctx context.Context, comment *model.Comment) error
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if m.createFn != nil {
		return m.createFn(ctx, comment)
	}
	return nil
}
func (m *mockCommentRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error) {
	return nil, nil
}

type mockLikeRepo struct {
	createFn func(ctx context.Context, like *model.Like) error
	existsFn func(ctx context.Context, postID, author string) (bool, error)
}

func (m *mockLikeRepo) Create(ctx context.Context, like *model.Like) error {
	if m.createFn != nil {
		return m.createFn(ctx, like)
	}
	return nil
}
func (m *mockLikeRepo) Exists(ctx context.Context, postID, author string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID, author)
	}
	return false, nil
}
func (m *mockLikeRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Like, error) {
	return nil, nil
}

// passthroughSanitizer は前後の空白のみ除去するサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(raw)
}

// --- テスト ---

// TestInbound_HandleFollow はリモートフォロワーのスタブ作成とエッジ作成を検証する。
func TestInbound_HandleFollow(t *testing.T) {
	var ensuredStub *model.User
	var createdFollow *model.Follow

	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username == "bob" {
				return &model.User{Username: "bob", Active: true}, nil
			}
			return nil, nil
		},
		ensureRemoteFn: func(ctx context.Context, user *model.User) error {
			ensuredStub = user
			return nil
		},
	}
	followRepo := &mockFollowRepo{
		createFn: func(ctx context.Context, follow *model.Follow) error {
			createdFollow = follow
			return nil
		},
	}

	in := NewInbound(userRepo, followRepo, &mockPostRepo{}, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	err := in.HandleFollow(context.Background(), FollowPayload{
		Follower: "alice@peer.example.com",
		Followee: "bob",
	})
	if err != nil {
		t.Fatalf("HandleFollow returned error: %v", err)
	}

	if ensuredStub == nil || ensuredStub.Username != "alice@peer.example.com" {
		t.Errorf("expected remote stub for alice@peer.example.com, got %+v", ensuredStub)
	}
	if ensuredStub != nil && ensuredStub.HomeInstance != "peer.example.com" {
		t.Errorf("unexpected home instance: %s", ensuredStub.HomeInstance)
	}
	if createdFollow == nil || createdFollow.Follower != "alice@peer.example.com" || createdFollow.Followee != "bob" {
		t.Errorf("unexpected follow edge: %+v", createdFollow)
	}
}

// TestInbound_HandleFollow_UnknownFollowee は存在しないフォロー先がUSER_NOT_FOUNDになることを検証する。
func TestInbound_HandleFollow_UnknownFollowee(t *testing.T) {
	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, &mockPostRepo{}, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	err := in.HandleFollow(context.Background(), FollowPayload{
		Follower: "alice@peer.example.com",
		Followee: "ghost",
	})
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// TestInbound_HandleFollow_RemoteFollowee は他インスタンス宛のフォローが拒否されることを検証する。
func TestInbound_HandleFollow_RemoteFollowee(t *testing.T) {
	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, &mockPostRepo{}, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	err := in.HandleFollow(context.Background(), FollowPayload{
		Follower: "alice@peer.example.com",
		Followee: "bob@other.example.com",
	})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
}

// TestInbound_HandlePost は受信した投稿がサニタイズされて保存されることを検証する。
func TestInbound_HandlePost(t *testing.T) {
	var created *model.Post
	postRepo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}

	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, postRepo, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	id := uuid.New().String()
	err := in.HandlePost(context.Background(), PostPayload{
		ID:        id,
		Author:    "alice@peer.example.com",
		Text:      "  hello from peer  ",
		Latitude:  35.68,
		Longitude: 139.76,
		PhotoURL:  "https://peer.example.com/client/media/?url=abc.jpg",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("HandlePost returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected post to be created")
	}
	if created.ID != id {
		t.Errorf("expected origin post ID to be preserved, got %s", created.ID)
	}
	if created.Text != "hello from peer" {
		t.Errorf("expected sanitized text, got %q", created.Text)
	}
	if created.PhotoRef != "https://peer.example.com/client/media/?url=abc.jpg" {
		t.Errorf("unexpected photo ref: %s", created.PhotoRef)
	}
}

// TestInbound_HandlePost_Redelivered は同一投稿の二重配送が冪等に受理されることを検証する。
// リポジトリは重複IDのINSERTを無視するため、再送はエラーにならない。
func TestInbound_HandlePost_Redelivered(t *testing.T) {
	seen := map[string]bool{}
	postRepo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			seen[post.ID] = true
			return nil
		},
	}

	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, postRepo, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	payload := PostPayload{
		ID:        uuid.New().String(),
		Author:    "alice@peer.example.com",
		Text:      "hello",
		CreatedAt: time.Now(),
	}

	for i := 0; i < 2; i++ {
		if err := in.HandlePost(context.Background(), payload); err != nil {
			t.Fatalf("delivery %d: HandlePost returned error: %v", i+1, err)
		}
	}
	if len(seen) != 1 {
		t.Errorf("expected a single stored post ID, got %d", len(seen))
	}
}

// TestInbound_HandlePost_InvalidID は不正な投稿IDが拒否されることを検証する。
func TestInbound_HandlePost_InvalidID(t *testing.T) {
	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, &mockPostRepo{}, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	err := in.HandlePost(context.Background(), PostPayload{
		ID:     "not-a-uuid",
		Author: "alice@peer.example.com",
	})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
}

// TestInbound_HandleComment_PostNotFound は存在しない投稿へのコメントが
// POST_NOT_FOUNDになることを検証する。
func TestInbound_HandleComment_PostNotFound(t *testing.T) {
	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, &mockPostRepo{}, &mockCommentRepo{}, &mockLikeRepo{},
		passthroughSanitizer{}, "sns.example.com", true)

	err := in.HandleComment(context.Background(), CommentPayload{
		PostID: "missing",
		Author: "alice@peer.example.com",
		Text:   "nice",
	})
	assertAPIErrorCode(t, err, model.ErrCodePostNotFound)
}

// TestInbound_HandleLike_DuplicateIgnored は一意制約が無効な場合に
// 重複いいねが黙って受理されることを検証する。
func TestInbound_HandleLike_DuplicateIgnored(t *testing.T) {
	createCalled := false
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Author: "bob"}, nil
		},
	}
	likeRepo := &mockLikeRepo{
		existsFn: func(ctx context.Context, postID, author string) (bool, error) {
			return true, nil
		},
		createFn: func(ctx context.Context, like *model.Like) error {
			createCalled = true
			return nil
		},
	}

	in := NewInbound(&mockUserRepo{}, &mockFollowRepo{}, postRepo, &mockCommentRepo{}, likeRepo,
		passthroughSanitizer{}, "sns.example.com", false)

	err := in.HandleLike(context.Background(), LikePayload{
		PostID: "p1",
		Author: "alice@peer.example.com",
	})
	if err != nil {
		t.Fatalf("HandleLike returned error: %v", err)
	}
	if createCalled {
		t.Error("expected duplicate like to be ignored without insert")
	}
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s", code, apiErr.Code)
	}
}

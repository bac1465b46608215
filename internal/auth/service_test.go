package auth

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error       { return nil }
func (m *mockUserRepo) EnsureRemote(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) SearchByUsername(ctx context.Context, query string, limit int) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateBio(ctx context.Context, username, bio string) error    { return nil }
func (m *mockUserRepo) UpdateAvatar(ctx context.Context, username, ref string) error { return nil }

type mockTokenRepo struct {
	createFn   func(ctx context.Context, token *model.Token) error
	findByIDFn func(ctx context.Context, id string) (*model.Token, error)
}

func (m *mockTokenRepo) Create(ctx context.Context, token *model.Token) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}
func (m *mockTokenRepo) FindByID(ctx context.Context, id string) (*model.Token, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// --- テスト ---

// TestService_Login は正しい認証情報でトークンが発行されることを検証する。
func TestService_Login(t *testing.T) {
	hasher := NewPasswordHasher(testArgon2Params)
	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	var savedToken *model.Token
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{Username: username, PasswordHash: hash, Active: true}, nil
		},
	}
	tokenRepo := &mockTokenRepo{
		createFn: func(ctx context.Context, token *model.Token) error {
			savedToken = token
			return nil
		},
	}

	svc := NewService(userRepo, tokenRepo, hasher, ServiceConfig{TokenMaxAge: 3600})

	token, err := svc.Login(context.Background(), "alice", "correct-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token.ID == "" || len(token.ID) != 64 {
		t.Errorf("expected 64-char hex token ID, got %q", token.ID)
	}
	if token.Username != "alice" {
		t.Errorf("unexpected token username: %s", token.Username)
	}
	if savedToken == nil || savedToken.ID != token.ID {
		t.Error("expected token to be persisted")
	}
	if !token.ExpiresAt.After(time.Now()) {
		t.Error("expected token to expire in the future")
	}
}

// TestService_Login_WrongPassword はパスワード不一致がINVALID_CREDENTIALSになることを検証する。
func TestService_Login_WrongPassword(t *testing.T) {
	hasher := NewPasswordHasher(testArgon2Params)
	hash, _ := hasher.Hash("correct-password")

	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{Username: username, PasswordHash: hash, Active: true}, nil
		},
	}

	svc := NewService(userRepo, &mockTokenRepo{}, hasher, ServiceConfig{TokenMaxAge: 3600})

	_, err := svc.Login(context.Background(), "alice", "wrong-password")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// TestService_Login_UnknownUser は未登録ユーザーがINVALID_CREDENTIALSになることを検証する。
// USER_NOT_FOUNDを返すとユーザー名の存在が推測できてしまうため、コードを区別しない。
func TestService_Login_UnknownUser(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockTokenRepo{}, NewPasswordHasher(testArgon2Params),
		ServiceConfig{TokenMaxAge: 3600})

	_, err := svc.Login(context.Background(), "ghost", "password")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// TestService_Login_RemoteStub はパスワードハッシュが空のリモートスタブが
// ログインできないことを検証する。
func TestService_Login_RemoteStub(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{Username: username, HomeInstance: "peer.example.com", Active: true}, nil
		},
	}

	svc := NewService(userRepo, &mockTokenRepo{}, NewPasswordHasher(testArgon2Params),
		ServiceConfig{TokenMaxAge: 3600})

	_, err := svc.Login(context.Background(), "bob@peer.example.com", "password")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// TestService_CurrentUser は有効なトークンがアクティブユーザーに解決されることを検証する。
func TestService_CurrentUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{Username: username, Active: true}, nil
		},
	}
	tokenRepo := &mockTokenRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Token, error) {
			return &model.Token{ID: id, Username: "alice", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	svc := NewService(userRepo, tokenRepo, NewPasswordHasher(testArgon2Params),
		ServiceConfig{TokenMaxAge: 3600})

	user, err := svc.CurrentUser(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("unexpected username: %s", user.Username)
	}
}

// TestService_CurrentUser_UnknownToken は未登録トークンがUNAUTHORIZEDになることを検証する。
func TestService_CurrentUser_UnknownToken(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockTokenRepo{}, NewPasswordHasher(testArgon2Params),
		ServiceConfig{TokenMaxAge: 3600})

	_, err := svc.CurrentUser(context.Background(), "unknown-token")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

// TestService_CurrentUser_InactiveUser は無効化済みユーザーがUSER_INACTIVEになることを検証する。
func TestService_CurrentUser_InactiveUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{Username: username, Active: false}, nil
		},
	}
	tokenRepo := &mockTokenRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Token, error) {
			return &model.Token{ID: id, Username: "alice", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	svc := NewService(userRepo, tokenRepo, NewPasswordHasher(testArgon2Params),
		ServiceConfig{TokenMaxAge: 3600})

	_, err := svc.CurrentUser(context.Background(), "token-1")
	assertAPIErrorCode(t, err, model.ErrCodeUserInactive)
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

// Package auth はパスワード認証とベアラートークンの発行・検証を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
	"github.com/hitoshi/tsunagu/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenMaxAge int // トークン有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	hasher    *PasswordHasher
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	hasher *PasswordHasher,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		hasher:    hasher,
		config:    config,
	}
}

// Login はユーザー名とパスワードを検証し、ベアラートークンを発行する。
// 認証情報が一致しない場合はINVALID_CREDENTIALSを返す。
// リモートユーザーのスタブ（パスワードハッシュが空）はログインできない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Token, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.createToken(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	slog.Info("user logged in", slog.String("username", user.Username))
	return token, nil
}

// CurrentUser はトークンIDから現在のアクティブユーザーを解決する。
// トークンが不正・期限切れの場合はUNAUTHORIZED、
// ユーザーが無効化されている場合はUSER_INACTIVEを返す。
func (s *Service) CurrentUser(ctx context.Context, tokenID string) (*model.User, error) {
	if tokenID == "" {
		return nil, model.NewUnauthorizedError()
	}

	token, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByUsername(ctx, token.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	if !user.Active {
		return nil, model.NewUserInactiveError()
	}

	return user, nil
}

// createToken はトークンを生成し永続化する。
func (s *Service) createToken(ctx context.Context, username string) (*model.Token, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token ID: %w", err)
	}

	token := &model.Token{
		ID:        tokenID,
		Username:  username,
		ExpiresAt: time.Now().Add(time.Duration(s.config.TokenMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return token, nil
}

// generateTokenID は暗号的に安全なトークンIDを生成する。
func generateTokenID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
)

// --- モック ---

type mockAuthService struct {
	loginFn func(ctx context.Context, username, password string) (*model.Token, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Token, error) {
	return m.loginFn(ctx, username, password)
}

// --- テスト ---

// TestTokenHandler_IssueToken は正しい認証情報でトークンが返されることを検証する。
func TestTokenHandler_IssueToken(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Token, error) {
			if username != "alice" || password != "s3cret" {
				t.Errorf("unexpected credentials: %s / %s", username, password)
			}
			return &model.Token{ID: "token-abc", Username: username, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := NewTokenHandler(service)

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccessToken != "token-abc" {
		t.Errorf("unexpected access token: %s", resp.AccessToken)
	}
	if resp.TokenType != "bearer" {
		t.Errorf("unexpected token type: %s", resp.TokenType)
	}
}

// TestTokenHandler_IssueToken_InvalidCredentials は認証失敗が401になることを検証する。
func TestTokenHandler_IssueToken_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Token, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewTokenHandler(service)

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "wrong")

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

// TestTokenHandler_IssueToken_MissingFields は認証情報の欠落が400になることを検証する。
func TestTokenHandler_IssueToken_MissingFields(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Token, error) {
			t.Fatal("Login should not be called")
			return nil, nil
		},
	}
	h := NewTokenHandler(service)

	form := url.Values{}
	form.Set("username", "alice")

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/tsunagu/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// usernameContextKey はリクエストコンテキストに認証済みユーザー名を格納するためのキー。
var usernameContextKey = contextKey("username")

// UserResolver はトークンからアクティブユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserResolver interface {
	CurrentUser(ctx context.Context, tokenID string) (*model.User, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのベアラートークンを検証する
// ミドルウェアを返す。認証済みユーザー名をリクエストコンテキストに注入する。
// トークンが不正・期限切れの場合は401、ユーザーが無効化されている場合は403を返す。
func NewTokenMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからベアラートークンIDを取得
			tokenID, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. トークンをアクティブユーザーに解決
			user, err := resolver.CurrentUser(r.Context(), tokenID)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					status := http.StatusUnauthorized
					if apiErr.Code == model.ErrCodeUserInactive {
						status = http.StatusForbidden
					}
					WriteErrorResponse(w, status, apiErr)
					return
				}
				slog.Error("failed to resolve token",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みユーザー名をコンテキストに注入
			ctx := context.WithValue(r.Context(), usernameContextKey, user.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーから "Bearer <token>" のトークン部を取り出す。
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// UsernameFromContext はリクエストコンテキストから認証済みユーザー名を取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameContextKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// ContextWithUsername はコンテキストにユーザー名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey, username)
}

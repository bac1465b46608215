package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tsunagu/internal/model"
)

// AuthServiceInterface はトークンハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はユーザー名とパスワードを検証し、ベアラートークンを発行する。
	Login(ctx context.Context, username, password string) (*model.Token, error)
}

// TokenHandler はトークン発行のHTTPハンドラー。
type TokenHandler struct {
	service AuthServiceInterface
}

// NewTokenHandler はTokenHandlerを生成する。
func NewTokenHandler(service AuthServiceInterface) *TokenHandler {
	return &TokenHandler{
		service: service,
	}
}

// tokenResponse はトークン発行のAPIレスポンス。
// OAuth2パスワードフローのレスポンス形式に合わせる。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IssueToken はフォームエンコードされた認証情報からトークンを発行する。
// POST /token
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("フォームの解析に失敗しました"))
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("usernameとpasswordは必須です"))
		return
	}

	token, err := h.service.Login(r.Context(), username, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken: token.ID,
		TokenType:   "bearer",
	})
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tsunagu/internal/federation"
	"github.com/hitoshi/tsunagu/internal/model"
)

// FederationInboundInterface はサーバー間ハンドラーが必要とするサービスインターフェース。
type FederationInboundInterface interface {
	// Search はサーバー間のユーザー検索を処理する。
	Search(ctx context.Context, query string) ([]*model.User, error)
	// HandleFollow は他インスタンスから届いたフォローを適用する。
	HandleFollow(ctx context.Context, p federation.FollowPayload) error
	// HandlePost は他インスタンスから届いた投稿を適用する。
	HandlePost(ctx context.Context, p federation.PostPayload) error
	// HandleComment は他インスタンスから届いたコメントを適用する。
	HandleComment(ctx context.Context, p federation.CommentPayload) error
	// HandleLike は他インスタンスから届いたいいねを適用する。
	HandleLike(ctx context.Context, p federation.LikePayload) error
}

// ServerHandler はサーバー間エンドポイント（/server/*）のHTTPハンドラー。
// 他インスタンスからのリレーを受理する。
type ServerHandler struct {
	service FederationInboundInterface
}

// NewServerHandler はServerHandlerを生成する。
func NewServerHandler(service FederationInboundInterface) *ServerHandler {
	return &ServerHandler{
		service: service,
	}
}

// Search はサーバー間のユーザー検索を処理する。
// GET /server/search?query=
func (h *ServerHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]userResponse, 0, len(users))
	for _, u := range users {
		results = append(results, toUserResponse(u))
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// Follow は他インスタンスから届いたフォローを受理する。
// POST /server/follow
func (h *ServerHandler) Follow(w http.ResponseWriter, r *http.Request) {
	var p federation.FollowPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.HandleFollow(r.Context(), p); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Post は他インスタンスから届いた投稿を受理する。
// POST /server/post
func (h *ServerHandler) Post(w http.ResponseWriter, r *http.Request) {
	var p federation.PostPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.HandlePost(r.Context(), p); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Comment は他インスタンスから届いたコメントを受理する。
// POST /server/comment
func (h *ServerHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var p federation.CommentPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.HandleComment(r.Context(), p); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Like は他インスタンスから届いたいいねを受理する。
// POST /server/like
func (h *ServerHandler) Like(w http.ResponseWriter, r *http.Request) {
	var p federation.LikePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.HandleLike(r.Context(), p); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
	"github.com/hitoshi/tsunagu/internal/user"
)

// maxMultipartMemory はマルチパート解析時にメモリへ保持する最大バイト数。
const maxMultipartMemory = 32 << 20 // 32 MiB

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Signup は新規ローカルユーザーを作成する。
	Signup(ctx context.Context, username, password, bio string) error
	// Profile は指定ユーザーのプロフィールを取得する。
	Profile(ctx context.Context, username string) (*user.Profile, error)
	// Search はユーザー名の部分一致でローカルユーザーを検索する。
	Search(ctx context.Context, query string) ([]*model.User, error)
	// Follow はrequesterからtargetへのフォローエッジを作成する。
	Follow(ctx context.Context, requester, target string) error
	// Followers は指定ユーザーをフォローしているエッジ一覧を返す。
	Followers(ctx context.Context, username string) ([]*model.Follow, error)
	// Following は指定ユーザーがフォローしているエッジ一覧を返す。
	Following(ctx context.Context, username string) ([]*model.Follow, error)
	// UpdateBio はユーザーの自己紹介を更新する。
	UpdateBio(ctx context.Context, username, bio string) error
	// UpdateAvatar はアバター画像を保存し、参照を更新する。
	UpdateAvatar(ctx context.Context, username string, file io.Reader, filename string) (string, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

// followRequest はフォローリクエストのボディ。
type followRequest struct {
	Username string `json:"username"`
}

// updateBioRequest は自己紹介更新リクエストのボディ。
type updateBioRequest struct {
	Bio string `json:"bio"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	Remote    bool      `json:"remote"`
	CreatedAt time.Time `json:"created_at"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	userResponse
	Followers int `json:"followers"`
	Following int `json:"following"`
	Posts     int `json:"posts"`
}

// avatarResponse はアバター更新のAPIレスポンス。
type avatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// Signup は新規ユーザー登録を処理する。
// POST /client/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.Signup(r.Context(), req.Username, req.Password, req.Bio); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]string{
		"username": req.Username,
	})
}

// Me は認証済みユーザー自身のプロフィールを返す。
// GET /client/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	h.writeProfile(w, r, username)
}

// GetUser は指定ユーザーのプロフィールを返す。
// GET /client/users?username=
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("usernameは必須です"))
		return
	}

	h.writeProfile(w, r, username)
}

// Search はユーザー名の部分一致検索を処理する。
// GET /client/search?query=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
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

// Follow はフォロー作成を処理する。
// POST /client/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	requester, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Username == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("usernameは必須です"))
		return
	}

	if err := h.service.Follow(r.Context(), requester, req.Username); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Followers はフォロワー一覧を返す。
// GET /client/followers?username=（省略時は認証済みユーザー自身）
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	username, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	follows, err := h.service.Followers(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	names := make([]string, 0, len(follows))
	for _, f := range follows {
		names = append(names, f.Follower)
	}

	writeJSONResponse(w, http.StatusOK, names)
}

// Following はフォロー中ユーザー一覧を返す。
// GET /client/following?username=（省略時は認証済みユーザー自身）
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	username, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	follows, err := h.service.Following(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	names := make([]string, 0, len(follows))
	for _, f := range follows {
		names = append(names, f.Followee)
	}

	writeJSONResponse(w, http.StatusOK, names)
}

// UpdateBio は自己紹介の更新を処理する。
// POST /client/bio
func (h *UserHandler) UpdateBio(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req updateBioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.UpdateBio(r.Context(), username, req.Bio); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// UpdateAvatar はアバター画像のアップロードを処理する。
// POST /client/avatar（multipart/form-data、フィールド名 "avatar"）
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("マルチパートフォームの解析に失敗しました"))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("avatarファイルは必須です"))
		return
	}
	defer file.Close()

	ref, err := h.service.UpdateAvatar(r.Context(), username, file, header.Filename)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, avatarResponse{
		AvatarURL: mediaURL(ref),
	})
}

// writeProfile はプロフィールレスポンスを書き込む。
func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, username string) {
	profile, err := h.service.Profile(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, profileResponse{
		userResponse: toUserResponse(profile.User),
		Followers:    profile.Followers,
		Following:    profile.Following,
		Posts:        profile.Posts,
	})
}

// resolveTarget はクエリパラメータのusername、無指定の場合は認証済み
// ユーザー名を返す。
func (h *UserHandler) resolveTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	if username := r.URL.Query().Get("username"); username != "" {
		return username, true
	}
	return requireUsername(w, r)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Bio:       u.Bio,
		AvatarURL: mediaURL(u.AvatarRef),
		Remote:    u.IsRemote(),
		CreatedAt: u.CreatedAt,
	}
}

// mediaURL はメディア参照をクライアント向けURLに変換する。
// 他インスタンスのメディアを指す絶対URLはそのまま返す。
func mediaURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return "/client/media/?url=" + ref
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/tsunagu/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// CreatePost は投稿を作成し、リモートフォロワーへ伝播する。
	CreatePost(ctx context.Context, author, text string, latitude, longitude float64, photo io.Reader, photoName string) (*model.Post, error)
	// Feed は自身とフォロー中ユーザーの投稿を新しい順で返す。
	Feed(ctx context.Context, username string) ([]*model.Post, error)
	// GetPost は指定IDの投稿を取得する。
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	// Comments は指定投稿のコメント一覧を返す。
	Comments(ctx context.Context, postID string) ([]*model.Comment, error)
	// Likes は指定投稿のいいね一覧を返す。
	Likes(ctx context.Context, postID string) ([]*model.Like, error)
	// CreateComment はコメントを作成する。
	CreateComment(ctx context.Context, author, postID, text string) (*model.Comment, error)
	// CreateLike はいいねを作成する。
	CreateLike(ctx context.Context, author, postID string) error
}

// PostHandler は投稿・コメント・いいねのHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

// createCommentRequest はコメント作成リクエストのボディ。
type createCommentRequest struct {
	ID      string `json:"id"`
	Comment string `json:"comment"`
}

// createLikeRequest はいいね作成リクエストのボディ。
type createLikeRequest struct {
	ID string `json:"id"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

// commentResponse はコメントのAPIレスポンス。
type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// likeResponse はいいねのAPIレスポンス。
type likeResponse struct {
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePost は新規投稿を処理する。
// POST /client/post（multipart/form-data: post, latitude, longitude, photo）
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	author, ok := requireUsername(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("マルチパートフォームの解析に失敗しました"))
		return
	}

	text := r.FormValue("post")
	if text == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("postは必須です"))
		return
	}

	latitude, longitude, err := parseCoordinates(r.FormValue("latitude"), r.FormValue("longitude"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	// 写真は省略可能
	var photo io.Reader
	var photoName string
	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		photo = file
		photoName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// 写真なしの投稿
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("photoファイルの読み取りに失敗しました"))
		return
	}

	post, err := h.service.CreatePost(r.Context(), author, text, latitude, longitude, photo, photoName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toPostResponse(post))
}

// Feed は認証済みユーザーのフィードを返す。
// GET /client/posts
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	posts, err := h.service.Feed(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		results = append(results, toPostResponse(p))
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// GetPost は投稿詳細を返す。
// GET /client/post?id=
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := requirePostID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toPostResponse(post))
}

// Comments は投稿のコメント一覧を返す。
// GET /client/comments?id=
func (h *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	postID, ok := requirePostID(w, r)
	if !ok {
		return
	}

	comments, err := h.service.Comments(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		results = append(results, toCommentResponse(c))
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// Likes は投稿のいいね一覧を返す。
// GET /client/likes?id=
func (h *PostHandler) Likes(w http.ResponseWriter, r *http.Request) {
	postID, ok := requirePostID(w, r)
	if !ok {
		return
	}

	likes, err := h.service.Likes(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]likeResponse, 0, len(likes))
	for _, l := range likes {
		results = append(results, likeResponse{
			PostID:    l.PostID,
			Author:    l.Author,
			CreatedAt: l.CreatedAt,
		})
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// CreateComment はコメント作成を処理する。
// POST /client/comment
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	author, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.ID == "" || req.Comment == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("idとcommentは必須です"))
		return
	}

	comment, err := h.service.CreateComment(r.Context(), author, req.ID, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toCommentResponse(comment))
}

// CreateLike はいいね作成を処理する。
// POST /client/like
func (h *PostHandler) CreateLike(w http.ResponseWriter, r *http.Request) {
	author, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req createLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.ID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("idは必須です"))
		return
	}

	if err := h.service.CreateLike(r.Context(), author, req.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// --- ヘルパー関数 ---

// requirePostID はクエリパラメータidを取得する。空の場合は400を書き込む。
func requirePostID(w http.ResponseWriter, r *http.Request) (string, bool) {
	postID := r.URL.Query().Get("id")
	if postID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("idは必須です"))
		return "", false
	}
	return postID, true
}

// parseCoordinates は緯度・経度の文字列を解析し、範囲を検証する。
func parseCoordinates(latStr, lonStr string) (float64, float64, error) {
	latitude, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, errors.New("latitudeが数値ではありません")
	}
	longitude, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, errors.New("longitudeが数値ではありません")
	}

	if latitude < -90 || latitude > 90 {
		return 0, 0, errors.New("latitudeは-90〜90の範囲で指定してください")
	}
	if longitude < -180 || longitude > 180 {
		return 0, 0, errors.New("longitudeは-180〜180の範囲で指定してください")
	}

	return latitude, longitude, nil
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Author:    p.Author,
		Text:      p.Text,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		PhotoURL:  mediaURL(p.PhotoRef),
		CreatedAt: p.CreatedAt,
	}
}

// toCommentResponse はmodel.CommentからAPIレスポンスに変換する。
func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

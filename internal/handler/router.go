package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tsunagu/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	UserResolver      middleware.UserResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 投稿
	PostService PostServiceInterface

	// フェデレーション受信
	FederationInbound FederationInboundInterface

	// メディア配信
	MediaResolver MediaResolver

	// 運用系
	DatabaseResetter DatabaseResetter
	InstanceHost     string
	Version          string

	// Prometheusメトリクスのエクスポート
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → TokenMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// トークン発行・サインアップ・メディア配信・サーバー間エンドポイント・運用系は
// 認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェアを最上位に適用
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	tokenHandler := NewTokenHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	postHandler := NewPostHandler(deps.PostService)
	serverHandler := NewServerHandler(deps.FederationInbound)
	mediaHandler := NewMediaHandler(deps.MediaResolver)
	utilHandler := NewUtilHandler(deps.DatabaseResetter, deps.InstanceHost, deps.Version)

	// --- 認証不要のルート ---

	// トークン発行（OAuth2パスワードフロー互換）
	r.Post("/token", tokenHandler.IssueToken)

	// サインアップ（IP単位のレート制限を適用）
	r.With(deps.RateLimiter.SignupMiddleware()).Post("/client/signup", userHandler.Signup)

	// メディア配信（他インスタンスからも参照される）
	r.Get("/client/media/", mediaHandler.Serve)

	// サーバー間エンドポイント（他インスタンスからのリレー受理）
	r.Route("/server", func(r chi.Router) {
		r.Get("/search", serverHandler.Search)
		r.Post("/follow", serverHandler.Follow)
		r.Post("/post", serverHandler.Post)
		r.Post("/comment", serverHandler.Comment)
		r.Post("/like", serverHandler.Like)
	})

	// 運用系
	r.Get("/reset_database", utilHandler.ResetDatabase)
	r.Get("/util", utilHandler.Info)
	r.Get("/health", utilHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Token → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.UserResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/client", func(r chi.Router) {
			// プロフィール
			r.Get("/me", userHandler.Me)
			r.Get("/users", userHandler.GetUser)
			r.Get("/search", userHandler.Search)
			r.Post("/bio", userHandler.UpdateBio)
			r.Post("/avatar", userHandler.UpdateAvatar)

			// ソーシャルグラフ
			r.Post("/follow", userHandler.Follow)
			r.Get("/followers", userHandler.Followers)
			r.Get("/following", userHandler.Following)

			// 投稿・コメント・いいね
			r.Get("/posts", postHandler.Feed)
			r.Get("/post", postHandler.GetPost)
			r.Post("/post", postHandler.CreatePost)
			r.Get("/comments", postHandler.Comments)
			r.Post("/comment", postHandler.CreateComment)
			r.Get("/likes", postHandler.Likes)
			r.Post("/like", postHandler.CreateLike)
		})
	})

	return r
}

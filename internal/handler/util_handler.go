package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// DatabaseResetter は全テーブルのデータ削除インターフェース。
// 開発・検証環境のリセット用途にのみ使用する。
type DatabaseResetter interface {
	Reset(ctx context.Context) error
}

// UtilHandler は運用系エンドポイントのHTTPハンドラー。
type UtilHandler struct {
	resetter     DatabaseResetter
	instanceHost string
	version      string
}

// NewUtilHandler はUtilHandlerを生成する。
func NewUtilHandler(resetter DatabaseResetter, instanceHost, version string) *UtilHandler {
	return &UtilHandler{
		resetter:     resetter,
		instanceHost: instanceHost,
		version:      version,
	}
}

// ResetDatabase は全テーブルのデータを削除する。
// GET /reset_database
func (h *UtilHandler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetter.Reset(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Warn("database reset executed")
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Info はインスタンス情報を返す。
// GET /util
func (h *UtilHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"instance": h.instanceHost,
		"version":  h.version,
	})
}

// Health はヘルスチェックに応答する。
// GET /health
func (h *UtilHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

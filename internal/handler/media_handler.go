package handler

import (
	"net/http"

	"github.com/hitoshi/tsunagu/internal/model"
)

// MediaResolver はメディア参照からディスクパスを解決するインターフェース。
// media.Storeの部分集合として定義する。
type MediaResolver interface {
	Path(ref string) (string, error)
}

// MediaHandler は保存済みメディアの配信ハンドラー。
type MediaHandler struct {
	resolver MediaResolver
}

// NewMediaHandler はMediaHandlerを生成する。
func NewMediaHandler(resolver MediaResolver) *MediaHandler {
	return &MediaHandler{
		resolver: resolver,
	}
}

// Serve は保存済みメディアファイルを配信する。
// GET /client/media/?url=<ref>
// 他インスタンスからも参照されるため認証は不要。
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("urlは必須です"))
		return
	}

	path, err := h.resolver.Path(ref)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMediaNotFoundError(ref))
		return
	}

	http.ServeFile(w, r, path)
}

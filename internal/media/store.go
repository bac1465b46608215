// Package media はアップロードされた写真・アバターのディスク保存を提供する。
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxUploadSize はアップロード1件あたりの最大バイト数。
const maxUploadSize = 10 << 20 // 10 MiB

// allowedExtensions は保存を許可する拡張子。
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store はメディアファイルのディスクストア。
// 保存時にUUIDベースのファイル名を割り当て、その参照を返す。
type Store struct {
	root string
}

// NewStore はStoreを生成し、ルートディレクトリを作成する。
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Store{root: root}, nil
}

// Save はアップロードされたファイルを保存し、メディア参照（"<uuid><ext>"）と
// 書き込んだバイト数を返す。元のファイル名は拡張子の判定にのみ使用する。
func (s *Store) Save(r io.Reader, originalName string) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", 0, fmt.Errorf("disallowed file extension: %q", ext)
	}

	ref := uuid.New().String() + ext
	path := filepath.Join(s.root, ref)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	// 上限+1バイトまで読み、超過を検出した場合は書きかけのファイルを残さない
	written, err := io.Copy(f, io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write media file: %w", err)
	}
	if written > maxUploadSize {
		os.Remove(path)
		return "", 0, fmt.Errorf("upload exceeds size limit of %d bytes", maxUploadSize)
	}

	return ref, written, nil
}

// Path はメディア参照からディスク上のパスを解決する。
// ディレクトリトラバーサルを防ぐため、参照はベース名のみ許可する。
// ファイルが存在しない場合はos.ErrNotExistをラップしたエラーを返す。
func (s *Store) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("invalid media reference: %q", ref)
	}

	path := filepath.Join(s.root, ref)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("media file not found: %w", err)
	}

	return path, nil
}

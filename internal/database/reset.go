package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Reset は全テーブルのデータを削除する。スキーマは保持する。
// GET /reset_database から呼ばれる開発・テスト用の機能。
// 外部キー制約があるためCASCADEで一括TRUNCATEする。
func Reset(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`TRUNCATE users, follows, posts, comments, likes, tokens CASCADE`,
	)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// Resetter はResetをメソッドとして公開するアダプタ。
// ハンドラー層へ*sql.DBを直接渡さずにリセット機能を提供する。
type Resetter struct {
	db *sql.DB
}

// NewResetter はResetterを生成する。
func NewResetter(db *sql.DB) *Resetter {
	return &Resetter{db: db}
}

// Reset は全テーブルのデータを削除する。
func (r *Resetter) Reset(ctx context.Context) error {
	return Reset(ctx, r.db)
}

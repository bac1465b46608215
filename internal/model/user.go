// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// HomeInstanceが空文字列の場合はこのインスタンスのローカルユーザー、
// それ以外の場合はフェデレーション経由で知ったリモートユーザーのスタブを表す。
type User struct {
	Username     string
	PasswordHash string // リモートユーザーのスタブでは空
	Bio          string
	AvatarRef    string // メディアストア内の参照（リモートユーザーは絶対URL）
	Active       bool
	HomeInstance string // ローカルユーザーは ""
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsRemote はユーザーが他インスタンス所属かを返す。
func (u *User) IsRemote() bool {
	return u.HomeInstance != ""
}

// Follow はフォロー関係（follower → followee）の有向エッジを表す。
// (follower, followee) の組はユニーク。
type Follow struct {
	Follower  string
	Followee  string
	CreatedAt time.Time
}

// Token はベアラートークンを表す。
// IDそのものがクライアントに渡される不透明なクレデンシャル。
type Token struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はトークンが期限切れかを返す。
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

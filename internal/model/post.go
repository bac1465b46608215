package model

import "time"

// Post は位置情報と写真付きの投稿を表す。
// ローカルユーザーの投稿またはフェデレーション経由で受信したリモート投稿。
type Post struct {
	ID        string // UUID
	Author    string // username（リモートの場合は name@host 形式）
	Text      string
	Latitude  float64
	Longitude float64
	PhotoRef  string // メディア参照（リモート投稿は投稿元インスタンスの絶対URL）
	CreatedAt time.Time
}

// Comment は投稿へのコメントを表す。
type Comment struct {
	ID        string // UUID
	PostID    string
	Author    string
	Text      string
	CreatedAt time.Time
}

// Like は投稿への「いいね」を表す。(PostID, Author) の組はユニーク。
type Like struct {
	PostID    string
	Author    string
	CreatedAt time.Time
}

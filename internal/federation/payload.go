package federation

import "time"

// サーバー間エンドポイント（/server/*）のワイヤーフォーマット。
// クライアントAPIと異なり、操作主体（actor）はトークンではなく
// ペイロードのフィールドとして明示的に渡される。

// FollowPayload はPOST /server/followのペイロード。
// Followerは送信元インスタンスで修飾されたユーザー名（name@host）、
// Followeeは受信側インスタンスのローカルユーザー名。
type FollowPayload struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

// PostPayload はPOST /server/postのペイロード。
// PhotoURLは投稿元インスタンスのメディアを指す絶対URL。
type PostPayload struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentPayload はPOST /server/commentのペイロード。
type CommentPayload struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// LikePayload はPOST /server/likeのペイロード。
type LikePayload struct {
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

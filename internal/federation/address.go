// Package federation はインスタンス間のフォロー・投稿・コメント・いいねの
// 伝播（サーバー間リレー）を提供する。
package federation

import (
	"fmt"
	"strings"
)

// Address はユーザーの所属を表す。"name@host" 形式のユーザー名を分解したもの。
// Hostが空の場合はローカルユーザー。
type Address struct {
	Name string
	Host string
}

// IsRemote はアドレスが他インスタンス所属かを返す。
func (a Address) IsRemote() bool {
	return a.Host != ""
}

// String は "name@host"（ローカルの場合は "name"）を返す。
func (a Address) String() string {
	if a.Host == "" {
		return a.Name
	}
	return a.Name + "@" + a.Host
}

// ParseAddress はユーザー名をAddressに分解する。
// "alice" → ローカル、"alice@sns.example.com" → リモート。
// instanceHostと一致するホストはローカルとして正規化される。
func ParseAddress(username, instanceHost string) (Address, error) {
	if username == "" {
		return Address{}, fmt.Errorf("empty username")
	}

	name, host, found := strings.Cut(username, "@")
	if !found {
		return Address{Name: username}, nil
	}

	if name == "" || host == "" || strings.Contains(host, "@") {
		return Address{}, fmt.Errorf("invalid federated username: %q", username)
	}

	// 自インスタンスのホストが付いている場合はローカル扱いに正規化する
	if strings.EqualFold(host, instanceHost) {
		return Address{Name: name}, nil
	}

	return Address{Name: name, Host: host}, nil
}

// Qualify はローカルユーザー名に自インスタンスのホストを付与する。
// リレー送信時、相手インスタンスから見えるグローバルな名前を作るために使用する。
func Qualify(username, instanceHost string) string {
	if strings.Contains(username, "@") {
		return username
	}
	return username + "@" + instanceHost
}

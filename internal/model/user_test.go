package model

import (
	"testing"
	"time"
)

// TestUser_IsRemote はHomeInstanceの有無でリモート判定されることを検証する。
func TestUser_IsRemote(t *testing.T) {
	local := &User{Username: "alice"}
	if local.IsRemote() {
		t.Error("expected local user")
	}

	remote := &User{Username: "bob@peer.example.com", HomeInstance: "peer.example.com"}
	if !remote.IsRemote() {
		t.Error("expected remote user")
	}
}

// TestToken_Expired は有効期限の判定を検証する。
func TestToken_Expired(t *testing.T) {
	now := time.Now()

	valid := &Token{ExpiresAt: now.Add(time.Hour)}
	if valid.Expired(now) {
		t.Error("expected valid token")
	}

	expired := &Token{ExpiresAt: now.Add(-time.Second)}
	if !expired.Expired(now) {
		t.Error("expected expired token")
	}

	// 境界: ちょうど期限時刻はまだ有効
	boundary := &Token{ExpiresAt: now}
	if boundary.Expired(now) {
		t.Error("expected token at boundary to be valid")
	}
}

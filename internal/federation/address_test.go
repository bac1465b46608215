package federation

import "testing"

// TestParseAddress_Local はホスト部のないユーザー名がローカルとして解析されることを検証する。
func TestParseAddress_Local(t *testing.T) {
	addr, err := ParseAddress("alice", "sns.example.com")
	if err != nil {
		t.Fatalf("ParseAddress returned error: %v", err)
	}
	if addr.IsRemote() {
		t.Error("expected local address")
	}
	if addr.Name != "alice" {
		t.Errorf("expected name alice, got %s", addr.Name)
	}
	if addr.String() != "alice" {
		t.Errorf("expected string alice, got %s", addr.String())
	}
}

// TestParseAddress_Remote は name@host 形式がリモートとして解析されることを検証する。
func TestParseAddress_Remote(t *testing.T) {
	addr, err := ParseAddress("bob@peer.example.com", "sns.example.com")
	if err != nil {
		t.Fatalf("ParseAddress returned error: %v", err)
	}
	if !addr.IsRemote() {
		t.Error("expected remote address")
	}
	if addr.Name != "bob" {
		t.Errorf("expected name bob, got %s", addr.Name)
	}
	if addr.Host != "peer.example.com" {
		t.Errorf("expected host peer.example.com, got %s", addr.Host)
	}
	if addr.String() != "bob@peer.example.com" {
		t.Errorf("unexpected string: %s", addr.String())
	}
}

// TestParseAddress_OwnHostNormalized は自インスタンスのホストが付いた名前が
// ローカルに正規化されることを検証する。
func TestParseAddress_OwnHostNormalized(t *testing.T) {
	addr, err := ParseAddress("alice@sns.example.com", "sns.example.com")
	if err != nil {
		t.Fatalf("ParseAddress returned error: %v", err)
	}
	if addr.IsRemote() {
		t.Error("expected own-host address to be normalized to local")
	}
	if addr.String() != "alice" {
		t.Errorf("expected string alice, got %s", addr.String())
	}
}

// TestParseAddress_Invalid は不正な形式がエラーになることを検証する。
func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{
		"",
		"@peer.example.com",
		"bob@",
		"bob@peer@extra",
	}
	for _, username := range cases {
		if _, err := ParseAddress(username, "sns.example.com"); err == nil {
			t.Errorf("expected error for %q, got nil", username)
		}
	}
}

// TestQualify はローカル名にホストが付与され、修飾済みの名前は変更されないことを検証する。
func TestQualify(t *testing.T) {
	if got := Qualify("alice", "sns.example.com"); got != "alice@sns.example.com" {
		t.Errorf("unexpected qualified name: %s", got)
	}
	if got := Qualify("bob@peer.example.com", "sns.example.com"); got != "bob@peer.example.com" {
		t.Errorf("qualified name should not change: %s", got)
	}
}

package auth

import (
	"strings"
	"testing"
)

// testArgon2Params はテスト実行を速くするための軽量パラメータ。
var testArgon2Params = &Argon2Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// TestPasswordHasher_HashAndCompare はハッシュ化したパスワードが照合できることを検証する。
func TestPasswordHasher_HashAndCompare(t *testing.T) {
	hasher := NewPasswordHasher(testArgon2Params)

	encoded, err := hasher.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Errorf("unexpected hash format: %s", encoded)
	}

	ok, err := hasher.Compare(encoded, "s3cret-pass")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if !ok {
		t.Error("expected matching password to compare true")
	}

	ok, err = hasher.Compare(encoded, "wrong-pass")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if ok {
		t.Error("expected mismatched password to compare false")
	}
}

// TestPasswordHasher_HashIsSalted は同一パスワードでもハッシュが毎回異なることを検証する。
func TestPasswordHasher_HashIsSalted(t *testing.T) {
	hasher := NewPasswordHasher(testArgon2Params)

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if first == second {
		t.Error("expected different salts to produce different hashes")
	}
}

// TestPasswordHasher_CompareInvalidFormat は不正な形式のハッシュがエラーになることを検証する。
func TestPasswordHasher_CompareInvalidFormat(t *testing.T) {
	hasher := NewPasswordHasher(testArgon2Params)

	if _, err := hasher.Compare("not-a-phc-hash", "password"); err == nil {
		t.Error("expected error for invalid hash format")
	}
	if _, err := hasher.Compare("$argon2id$v=18$m=8192,t=1,p=1$abc$def", "password"); err == nil {
		t.Error("expected error for incompatible version")
	}
}

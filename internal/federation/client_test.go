package federation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestClient_Post はJSONペイロードが/server/<path>に送信されることを検証する。
func TestClient_Post(t *testing.T) {
	var gotPath string
	var gotPayload FollowPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	host := strings.TrimPrefix(ts.URL, "http://")
	client := NewClient(ts.Client(), true, slog.New(slog.NewTextHandler(io.Discard, nil)))

	payload := FollowPayload{Follower: "alice@sns.example.com", Followee: "bob"}
	if err := client.Post(context.Background(), host, "follow", payload); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}

	if gotPath != "/server/follow" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotPayload != payload {
		t.Errorf("unexpected payload: %+v", gotPayload)
	}
}

// TestClient_PostNon2xx は2xx以外のレスポンスがエラーになることを検証する。
func TestClient_PostNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	host := strings.TrimPrefix(ts.URL, "http://")
	client := NewClient(ts.Client(), true, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := client.Post(context.Background(), host, "post", PostPayload{ID: "x"})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

// TestClient_PostUnreachable は到達不能なホストがエラーになることを検証する。
func TestClient_PostUnreachable(t *testing.T) {
	client := NewClient(&http.Client{}, true, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Post(ctx, "peer.invalid", "like", LikePayload{PostID: "x"})
	if err == nil {
		t.Fatal("expected error for unreachable host, got nil")
	}
}

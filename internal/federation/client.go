package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Client はリモートインスタンスの/server/*エンドポイントを呼び出すHTTPクライアント。
// SSRF防止機能付きのhttp.Clientを外部から注入する。
type Client struct {
	httpClient *http.Client
	scheme     string // "https"（開発環境では "http"）
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// plaintextが真の場合はhttpスキームでリレーする（docker-compose等のローカル環境用）。
func NewClient(httpClient *http.Client, plaintext bool, logger *slog.Logger) *Client {
	scheme := "https"
	if plaintext {
		scheme = "http"
	}
	return &Client{
		httpClient: httpClient,
		scheme:     scheme,
		logger:     logger,
	}
}

// Post は指定ホストの/server/<path>にJSONペイロードをPOSTする。
// 2xx以外のステータスはエラーとして返す。
func (c *Client) Post(ctx context.Context, host, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	url := fmt.Sprintf("%s://%s/server/%s", c.scheme, host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Tsunagu/1.0 Federation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	// レスポンスボディは読み捨ててコネクションを再利用可能にする
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay to %s returned status %d", host, resp.StatusCode)
	}

	return nil
}

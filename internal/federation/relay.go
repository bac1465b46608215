package federation

import (
	"context"
	"log/slog"
	"time"
)

// RelaySender はリレー送信のインターフェース。Clientの部分集合として定義する。
type RelaySender interface {
	Post(ctx context.Context, host, path string, payload any) error
}

// HostValidator はリレー先ホストの事前検証インターフェース。
// security.RelayGuardServiceの部分集合として定義する。
type HostValidator interface {
	ValidateInstanceHost(host string) error
}

// RelayMetrics はリレー結果のメトリクス記録インターフェース。
type RelayMetrics interface {
	RecordRelaySuccess(kind string)
	RecordRelayFailure(kind string)
	RecordRelayLatency(duration time.Duration)
}

// Relay はローカルの変更をリモートインスタンスへベストエフォートで伝播する。
//
// 各リレーは至多1回送信（at-most-once）で、再送・順序保証・到達確認は行わない。
// 送信失敗はログとメトリクスに記録するのみで、呼び出し元のローカル書き込みには
// 影響しない。リクエストコンテキストから切り離したタイムアウト付きコンテキストで
// 非同期に送信する。
type Relay struct {
	sender    RelaySender
	validator HostValidator
	metrics   RelayMetrics
	logger    *slog.Logger
	timeout   time.Duration
}

// NewRelay はRelayの新しいインスタンスを生成する。
func NewRelay(
	sender RelaySender,
	validator HostValidator,
	metrics RelayMetrics,
	logger *slog.Logger,
	timeout time.Duration,
) *Relay {
	return &Relay{
		sender:    sender,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		timeout:   timeout,
	}
}

// FollowCreated はフォロー作成をフォロー先ユーザーのホームインスタンスへ伝播する。
func (r *Relay) FollowCreated(host string, payload FollowPayload) {
	r.send(host, "follow", "follow", payload)
}

// PostCreated は投稿作成をリモートフォロワーのホームインスタンス群へ伝播する。
// 同一ホストのフォロワーが複数いても送信は1回で済むよう、呼び出し元が
// ホストを重複排除して渡す。
func (r *Relay) PostCreated(hosts []string, payload PostPayload) {
	for _, host := range hosts {
		r.send(host, "post", "post", payload)
	}
}

// CommentCreated はコメント作成を投稿者のホームインスタンスへ伝播する。
func (r *Relay) CommentCreated(host string, payload CommentPayload) {
	r.send(host, "comment", "comment", payload)
}

// LikeCreated はいいね作成を投稿者のホームインスタンスへ伝播する。
func (r *Relay) LikeCreated(host string, payload LikePayload) {
	r.send(host, "like", "like", payload)
}

// send は1件のリレーを非同期に実行する。
func (r *Relay) send(host, path, kind string, payload any) {
	if err := r.validator.ValidateInstanceHost(host); err != nil {
		r.logger.Warn("relay target rejected",
			slog.String("host", host),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordRelayFailure(kind)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		err := r.sender.Post(ctx, host, path, payload)
		r.metrics.RecordRelayLatency(time.Since(start))

		if err != nil {
			// ベストエフォート: 失敗は記録するのみで再送しない
			r.logger.Warn("relay failed",
				slog.String("host", host),
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			r.metrics.RecordRelayFailure(kind)
			return
		}

		r.metrics.RecordRelaySuccess(kind)
	}()
}

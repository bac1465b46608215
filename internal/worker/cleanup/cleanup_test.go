package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// --- モック ---

type mockTokenSweeper struct {
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockTokenSweeper) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.deleteExpiredFn(ctx, now)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

// TestCleanupJob_Run は期限切れトークンの削除が実行されることを検証する。
func TestCleanupJob_Run(t *testing.T) {
	var gotNow time.Time
	sweeper := &mockTokenSweeper{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			gotNow = now
			return 3, nil
		},
	}
	job := NewCleanupJob(sweeper, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if gotNow.IsZero() {
		t.Error("expected DeleteExpired to receive the current time")
	}
}

// TestCleanupJob_Run_NoTokens は削除対象がなくてもエラーにならないことを検証する。
func TestCleanupJob_Run_NoTokens(t *testing.T) {
	sweeper := &mockTokenSweeper{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, nil
		},
	}
	job := NewCleanupJob(sweeper, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

// TestCleanupJob_Run_Error はリポジトリのエラーが伝播することを検証する。
func TestCleanupJob_Run_Error(t *testing.T) {
	sweeper := &mockTokenSweeper{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	job := NewCleanupJob(sweeper, discardLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Error("expected error from Run")
	}
}

// TestCleanupJob_RunLoop はコンテキストのキャンセルでループが停止することを検証する。
func TestCleanupJob_RunLoop(t *testing.T) {
	runs := make(chan struct{}, 10)
	sweeper := &mockTokenSweeper{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			select {
			case runs <- struct{}{}:
			default:
			}
			return 0, nil
		},
	}
	job := NewCleanupJob(sweeper, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx, 10*time.Millisecond)
		close(done)
	}()

	// 起動直後の1回目を待つ
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for loop to stop")
	}
}

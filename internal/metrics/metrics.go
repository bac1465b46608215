// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー層とフェデレーションリレーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRelaySuccess(kind string)
	RecordRelayFailure(kind string)
	RecordRelayLatency(duration time.Duration)
	RecordMediaStored(bytes int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus   *prometheus.CounterVec
	relaySuccess *prometheus.CounterVec
	relayFail    *prometheus.CounterVec
	relayLatency prometheus.Histogram
	mediaStored  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsunagu_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		relaySuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsunagu_relay_success_total",
			Help: "フェデレーションリレー成功の合計数（種別ごと）",
		}, []string{"kind"}),
		relayFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsunagu_relay_fail_total",
			Help: "フェデレーションリレー失敗の合計数（種別ごと）",
		}, []string{"kind"}),
		relayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsunagu_relay_latency_seconds",
			Help:    "フェデレーションリレーのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mediaStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsunagu_media_stored_bytes_total",
			Help: "保存されたメディアの合計バイト数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.relaySuccess,
		c.relayFail,
		c.relayLatency,
		c.mediaStored,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRelaySuccess はリレー成功を記録する。
func (c *Collector) RecordRelaySuccess(kind string) {
	c.relaySuccess.WithLabelValues(kind).Inc()
}

// RecordRelayFailure はリレー失敗を記録する。
func (c *Collector) RecordRelayFailure(kind string) {
	c.relayFail.WithLabelValues(kind).Inc()
}

// RecordRelayLatency はリレーのレイテンシを記録する。
func (c *Collector) RecordRelayLatency(duration time.Duration) {
	c.relayLatency.Observe(duration.Seconds())
}

// RecordMediaStored は保存されたメディアのバイト数を記録する。
func (c *Collector) RecordMediaStored(bytes int64) {
	c.mediaStored.Add(float64(bytes))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

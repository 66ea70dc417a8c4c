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
// プロフィール取得、分析、リンク検出の各コンポーネントから利用する。
type MetricsCollector interface {
	RecordAnalysis(source string)
	RecordFetchFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordLinkLookup(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	analyses     *prometheus.CounterVec
	fetchFail    *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	linkLookups  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescope_analyses_total",
			Help: "データソース別の分析完了数",
		}, []string{"source"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescope_profile_fetch_fail_total",
			Help: "理由別のプロフィール取得失敗数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescope_profile_http_status_total",
			Help: "プロフィールAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profilescope_profile_fetch_latency_seconds",
			Help:    "プロフィールAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		linkLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescope_link_lookups_total",
			Help: "結果別のリンク検出数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.analyses,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.linkLookups,
	)

	return c
}

// RecordAnalysis は分析の完了をデータソース（real, simulated）ごとに記録する。
func (c *Collector) RecordAnalysis(source string) {
	c.analyses.WithLabelValues(source).Inc()
}

// RecordFetchFailure はプロフィール取得失敗を記録する。
func (c *Collector) RecordFetchFailure(reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はプロフィールAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はプロフィールAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordLinkLookup はリンク検出の結果（found, not_found, suspicious, error）を記録する。
func (c *Collector) RecordLinkLookup(result string) {
	c.linkLookups.WithLabelValues(result).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやCLIで使う。
type Nop struct{}

func (Nop) RecordAnalysis(string) {}
func (Nop) RecordFetchFailure(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordFetchLatency(time.Duration) {}
func (Nop) RecordLinkLookup(string) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

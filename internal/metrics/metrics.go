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
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordCalendarGenerated(mode string, dates int)
	RecordICSExport()
	RecordPreview(success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(route string, duration time.Duration)
	RecordHolidaysPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	calendarsGenerated *prometheus.CounterVec
	calendarDates      prometheus.Histogram
	icsExports         prometheus.Counter
	previews           *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	holidaysPurged     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		calendarsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planneredu_calendars_generated_total",
			Help: "生成した授業カレンダーの合計数",
		}, []string{"mode"}),
		calendarDates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "planneredu_calendar_dates",
			Help: "1回のカレンダー生成で得られた授業日数",
			// 1学期（20週・週5回）程度までを想定
			Buckets: []float64{0, 5, 10, 20, 40, 60, 80, 100, 150},
		}),
		icsExports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planneredu_ics_exports_total",
			Help: "iCalendarエクスポートの合計数",
		}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planneredu_resource_previews_total",
			Help: "リソースプレビュー取得の結果別件数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planneredu_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planneredu_http_request_duration_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		holidaysPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planneredu_holidays_purged_total",
			Help: "保持期間を過ぎて削除された休日の合計数",
		}),
	}

	reg.MustRegister(
		c.calendarsGenerated,
		c.calendarDates,
		c.icsExports,
		c.previews,
		c.httpStatus,
		c.requestLatency,
		c.holidaysPurged,
	)

	return c
}

// RecordCalendarGenerated はカレンダー生成と得られた日数を記録する。
func (c *Collector) RecordCalendarGenerated(mode string, dates int) {
	c.calendarsGenerated.WithLabelValues(mode).Inc()
	c.calendarDates.Observe(float64(dates))
}

// RecordICSExport はiCalendarエクスポートを記録する。
func (c *Collector) RecordICSExport() {
	c.icsExports.Inc()
}

// RecordPreview はプレビュー取得の成否を記録する。
func (c *Collector) RecordPreview(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.previews.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はルートパターン単位でレイテンシを記録する。
// パスパラメータを含む実パスをラベルにするとカーディナリティが爆発するため、
// 呼び出し側はchiのルートパターンを渡すこと。
func (c *Collector) RecordRequestLatency(route string, duration time.Duration) {
	c.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordHolidaysPurged はクリーンアップで削除した休日数を記録する。
func (c *Collector) RecordHolidaysPurged(count int64) {
	c.holidaysPurged.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。
// テストやメトリクス不要なサブコマンドで使用する。
type NopCollector struct{}

func (NopCollector) RecordCalendarGenerated(string, int)        {}
func (NopCollector) RecordICSExport()                           {}
func (NopCollector) RecordPreview(bool)                         {}
func (NopCollector) RecordHTTPStatus(int)                       {}
func (NopCollector) RecordRequestLatency(string, time.Duration) {}
func (NopCollector) RecordHolidaysPurged(int64)                 {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

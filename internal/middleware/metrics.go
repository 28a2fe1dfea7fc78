package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/planneredu/internal/metrics"
)

// NewMetricsMiddleware はステータスコードとルート別レイテンシを記録するミドルウェアを返す。
// ルートパターンはハンドラー実行後に確定するため、記録は処理完了後に行う。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency(route, time.Since(start))
		})
	}
}

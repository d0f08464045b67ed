// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordWeatherLoginSuccess()
	RecordWeatherLoginFailure()
	RecordResolutionFailure(city string)
	RecordWeatherFetchSuccess()
	RecordWeatherFetchFailure(reason string)
	RecordWeatherFetchLatency(duration time.Duration)
	RecordCitiesSynced(count int)
	RecordChatRequest(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	resolutionFail prometheus.Counter
	weatherSuccess prometheus.Counter
	weatherFail    *prometheus.CounterVec
	weatherLatency prometheus.Histogram
	citiesSynced   prometheus.Counter
	chatRequests   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenkiman_weather_login_success_total",
			Help: "weather.comログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenkiman_weather_login_fail_total",
			Help: "weather.comログイン失敗の合計数",
		}),
		resolutionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenkiman_city_resolution_fail_total",
			Help: "都市名解決失敗の合計数",
		}),
		weatherSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenkiman_weather_fetch_success_total",
			Help: "天気取得成功の合計数",
		}),
		weatherFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenkiman_weather_fetch_fail_total",
			Help: "天気取得失敗の理由別合計数",
		}, []string{"reason"}),
		weatherLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tenkiman_weather_fetch_latency_seconds",
			Help:    "天気取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		citiesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenkiman_cities_synced_total",
			Help: "キャッシュに同期された都市の合計数",
		}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenkiman_chat_requests_total",
			Help: "チャットリクエストの種類別合計数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.resolutionFail,
		c.weatherSuccess,
		c.weatherFail,
		c.weatherLatency,
		c.citiesSynced,
		c.chatRequests,
	)

	return c
}

// RecordWeatherLoginSuccess はweather.comログイン成功を記録する。
func (c *Collector) RecordWeatherLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordWeatherLoginFailure はweather.comログイン失敗を記録する。
func (c *Collector) RecordWeatherLoginFailure() {
	c.loginFail.Inc()
}

// RecordResolutionFailure は都市名解決失敗を記録する。
func (c *Collector) RecordResolutionFailure(city string) {
	c.resolutionFail.Inc()
}

// RecordWeatherFetchSuccess は天気取得成功を記録する。
func (c *Collector) RecordWeatherFetchSuccess() {
	c.weatherSuccess.Inc()
}

// RecordWeatherFetchFailure は天気取得失敗を理由付きで記録する。
func (c *Collector) RecordWeatherFetchFailure(reason string) {
	c.weatherFail.WithLabelValues(reason).Inc()
}

// RecordWeatherFetchLatency は天気取得のレイテンシを記録する。
func (c *Collector) RecordWeatherFetchLatency(duration time.Duration) {
	c.weatherLatency.Observe(duration.Seconds())
}

// RecordCitiesSynced は同期された都市数を記録する。
func (c *Collector) RecordCitiesSynced(count int) {
	c.citiesSynced.Add(float64(count))
}

// RecordChatRequest はチャットリクエストを種類付きで記録する。
// kindは"summary"または"ask"。
func (c *Collector) RecordChatRequest(kind string) {
	c.chatRequests.WithLabelValues(kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

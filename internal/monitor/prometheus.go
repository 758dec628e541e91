package monitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collector struct {
	monitor *Monitor

	totalRequests       *prometheus.Desc
	requestsThisHour    *prometheus.Desc
	remaining           *prometheus.Desc
	averageResponseTime *prometheus.Desc
	errorRate           *prometheus.Desc
	cacheHitRate        *prometheus.Desc
	status              *prometheus.Desc
}

// NewCollector exports the monitor's stats to a prometheus registry
func NewCollector(m *Monitor) prometheus.Collector {
	return &collector{
		monitor: m,

		totalRequests: prometheus.NewDesc(
			"esportsync_upstream_requests_total",
			"Upstream requests made since the process started",
			nil, nil,
		),
		requestsThisHour: prometheus.NewDesc(
			"esportsync_upstream_requests_this_hour",
			"Upstream requests in the trailing hour",
			nil, nil,
		),
		remaining: prometheus.NewDesc(
			"esportsync_upstream_budget_remaining",
			"Upstream requests left in the hourly budget",
			nil, nil,
		),
		averageResponseTime: prometheus.NewDesc(
			"esportsync_upstream_average_response_time_milliseconds",
			"Average response time of the most recent upstream requests",
			nil, nil,
		),
		errorRate: prometheus.NewDesc(
			"esportsync_upstream_error_rate",
			"Fraction of upstream requests that failed",
			nil, nil,
		),
		cacheHitRate: prometheus.NewDesc(
			"esportsync_cache_hit_rate",
			"Fraction of cache lookups served from a cache tier",
			nil, nil,
		),
		status: prometheus.NewDesc(
			"esportsync_budget_status",
			"1 for the current budget status",
			[]string{"status"}, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalRequests
	ch <- c.requestsThisHour
	ch <- c.remaining
	ch <- c.averageResponseTime
	ch <- c.errorRate
	ch <- c.cacheHitRate
	ch <- c.status
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats := c.monitor.Stats(ctx)
	info := c.monitor.RateLimitInfo(ctx)

	ch <- prometheus.MustNewConstMetric(c.totalRequests, prometheus.CounterValue, float64(stats.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.requestsThisHour, prometheus.GaugeValue, float64(stats.RequestsThisHour))
	ch <- prometheus.MustNewConstMetric(c.remaining, prometheus.GaugeValue, float64(info.Remaining))
	ch <- prometheus.MustNewConstMetric(c.averageResponseTime, prometheus.GaugeValue, stats.AverageResponseTime)
	ch <- prometheus.MustNewConstMetric(c.errorRate, prometheus.GaugeValue, stats.ErrorRate)
	ch <- prometheus.MustNewConstMetric(c.cacheHitRate, prometheus.GaugeValue, stats.CacheHitRate)

	for _, status := range []Status{StatusSafe, StatusWarning, StatusCritical} {
		value := 0.0
		if status == stats.Status {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, value, string(status))
	}
}

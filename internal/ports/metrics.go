package ports

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type portsMetricsCollection struct {
	requestCount     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

var metrics portsMetricsCollection

func init() {
	const name = "esportsync/ports"
	meter := otel.Meter(name)

	requestCount, err := meter.Int64Counter(
		"ports/request_count",
		metric.WithDescription("Total number of requests received"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create request count metric: %w", err))
	}

	requestDuration, err := meter.Float64Histogram(
		"ports/request_duration_seconds",
		metric.WithDescription("Processing time for received requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create request duration metric: %w", err))
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"ports/requests_in_flight",
		metric.WithDescription("Requests currently being handled"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create requests in flight metric: %w", err))
	}

	metrics = portsMetricsCollection{
		requestCount:     requestCount,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
	}
}

// metricGameLabel keeps the game attribute to the known games
func metricGameLabel(raw string) string {
	if raw == "" {
		return "<none>"
	}
	game, err := domain.ParseGameType(raw)
	if err != nil {
		return "<invalid>"
	}
	return game.String()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func buildMetricsMiddleware(port string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			userAgent := r.UserAgent()
			if userAgent == "" {
				userAgent = "<missing>"
			}

			game := metricGameLabel(r.PathValue("game"))

			portOption := metric.WithAttributes(attribute.String("port", port))
			metrics.requestsInFlight.Add(ctx, 1, portOption)
			defer metrics.requestsInFlight.Add(ctx, -1, portOption)

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next(recorder, r)

			attributes := []attribute.KeyValue{
				attribute.String("port", port),
				attribute.String("game", game),
				attribute.String("method", r.Method),
				attribute.String("status_code", strconv.Itoa(recorder.statusCode)),
				attribute.String("user_agent", userAgent),
			}

			attributesOption := metric.WithAttributes(attributes...)

			metrics.requestCount.Add(ctx, 1, attributesOption)
			metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attributesOption)
		}
	}
}

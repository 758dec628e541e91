package esportsprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/constants"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = "https://api.pandascore.co"

const DefaultTimeout = 10 * time.Second

const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page selects a page of an upstream listing. Zero values use the defaults.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) normalized() Page {
	number := p.Number
	if number < 1 {
		number = 1
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	return Page{Number: number, PerPage: perPage}
}

// EsportsAPI has one accessor per upstream resource. A nil game queries the
// aggregate endpoint across all games.
type EsportsAPI interface {
	LiveMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error)
	UpcomingMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error)
	PastMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error)
	Tournaments(ctx context.Context, game *domain.GameType, page Page) ([]domain.Tournament, error)
	Teams(ctx context.Context, game *domain.GameType, page Page) ([]domain.Team, error)
	Players(ctx context.Context, game *domain.GameType, page Page) ([]domain.Player, error)
}

type pandaScoreMetricsCollection struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

func setupPandaScoreMetrics(meter metric.Meter) (pandaScoreMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("esportsprovider/pandascore/request_count")
	if err != nil {
		return pandaScoreMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"esportsprovider/pandascore/request_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return pandaScoreMetricsCollection{}, fmt.Errorf("failed to create request duration metric: %w", err)
	}

	return pandaScoreMetricsCollection{
		requestCount:    requestCount,
		requestDuration: requestDuration,
	}, nil
}

type pandaScore struct {
	httpClient HttpClient
	token      string
	baseURL    string
	timeout    time.Duration
	schemas    schemaSet

	metrics pandaScoreMetricsCollection
	tracer  trace.Tracer
}

type Option func(*pandaScore)

func WithBaseURL(baseURL string) Option {
	return func(p *pandaScore) {
		p.baseURL = baseURL
	}
}

// WithTimeout bounds every call, failing with *domain.TimeoutError when exceeded
func WithTimeout(timeout time.Duration) Option {
	return func(p *pandaScore) {
		p.timeout = timeout
	}
}

func NewPandaScore(httpClient HttpClient, token string, opts ...Option) (EsportsAPI, error) {
	const name = "esportsync/esportsprovider/pandascore"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupPandaScoreMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("failed to compile payload schemas: %w", err)
	}

	p := &pandaScore{
		httpClient: httpClient,
		token:      token,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		schemas:    schemas,

		metrics: metrics,
		tracer:  tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func NewPandaScoreOrMock(conf config.Config, httpClient HttpClient) (EsportsAPI, error) {
	if conf.PandaScoreAPIToken() != "" {
		return NewPandaScore(httpClient, conf.PandaScoreAPIToken(), WithTimeout(conf.UpstreamTimeout()))
	}
	if conf.IsDevelopment() {
		return NewMockedAPI(), nil
	}
	return nil, fmt.Errorf("Missing PandaScore API token in non-development environment")
}

func resourcePath(game *domain.GameType, resource string) string {
	if game == nil {
		return "/" + resource
	}
	return fmt.Sprintf("/%s/%s", game.UpstreamSlug(), resource)
}

func (p *pandaScore) LiveMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return get[[]domain.Match](ctx, p, resourcePath(game, "matches/running"), page, matchesSchema)
}

func (p *pandaScore) UpcomingMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return get[[]domain.Match](ctx, p, resourcePath(game, "matches/upcoming"), page, matchesSchema)
}

func (p *pandaScore) PastMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return get[[]domain.Match](ctx, p, resourcePath(game, "matches/past"), page, matchesSchema)
}

func (p *pandaScore) Tournaments(ctx context.Context, game *domain.GameType, page Page) ([]domain.Tournament, error) {
	return get[[]domain.Tournament](ctx, p, resourcePath(game, "tournaments"), page, tournamentsSchema)
}

func (p *pandaScore) Teams(ctx context.Context, game *domain.GameType, page Page) ([]domain.Team, error) {
	return get[[]domain.Team](ctx, p, resourcePath(game, "teams"), page, teamsSchema)
}

func (p *pandaScore) Players(ctx context.Context, game *domain.GameType, page Page) ([]domain.Player, error) {
	return get[[]domain.Player](ctx, p, resourcePath(game, "players"), page, playersSchema)
}

func get[T any](ctx context.Context, p *pandaScore, path string, page Page, schema payloadSchema) (T, error) {
	var empty T

	ctx, span := p.tracer.Start(ctx, "PandaScore.get")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	page = page.normalized()
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Number))
	query.Set("per_page", strconv.Itoa(page.PerPage))
	requestURL := fmt.Sprintf("%s%s?%s", p.baseURL, path, query.Encode())

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return empty, err
	}

	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	start := time.Now()
	statusCode := "<none>"
	defer func() {
		attributesOption := metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("status_code", statusCode),
		)
		p.metrics.requestCount.Add(ctx, 1, attributesOption)
		p.metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attributesOption)
	}()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return empty, p.transportError(ctx, path, err)
	}
	defer resp.Body.Close()
	statusCode = strconv.Itoa(resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, p.transportError(ctx, path, err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "PandaScore request completed", "path", path, "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Path:       path,
		}
		if !upstreamErr.Retryable() {
			// Client errors mean our request is wrong, retryable ones are expected now and then
			reporting.Report(ctx, upstreamErr, map[string]string{
				"data": string(data),
			})
		}
		return empty, upstreamErr
	}

	result, err := decodeValidated[T](p.schemas, schema, data)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"path": path,
			"data": string(data),
		})
		return empty, err
	}

	return result, nil
}

func (p *pandaScore) transportError(ctx context.Context, path string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &domain.TimeoutError{
			Operation: fmt.Sprintf("GET %s", path),
			Timeout:   p.timeout,
		}
	}

	err = fmt.Errorf("failed to send request: %w", err)
	if ctx.Err() == nil {
		reporting.Report(ctx, err)
	}
	return err
}

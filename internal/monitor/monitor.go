package monitor

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Amund211/esportsync/internal/logging"
)

const DefaultHourlyLimit = 1000

const (
	window              = time.Hour
	responseTimeSamples = 100

	warningThreshold  = 600
	criticalThreshold = 800
)

type Status string

const (
	StatusSafe     Status = "safe"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

var recommendations = map[Status]string{
	StatusSafe:     "Normal operation. Syncs can run at the regular interval.",
	StatusWarning:  "Elevated usage. Prefer cached data and reduce sync frequency.",
	StatusCritical: "Close to the hourly limit. Serve cached data only and postpone non-essential syncs.",
}

func classify(requestsThisHour int) Status {
	switch {
	case requestsThisHour > criticalThreshold:
		return StatusCritical
	case requestsThisHour >= warningThreshold:
		return StatusWarning
	}
	return StatusSafe
}

type Stats struct {
	TotalRequests       int     `json:"totalRequests"`
	RequestsThisHour    int     `json:"requestsThisHour"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	Errors              int     `json:"errors"`
	ErrorRate           float64 `json:"errorRate"`
	CacheHits           int     `json:"cacheHits"`
	CacheMisses         int     `json:"cacheMisses"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	Status              Status  `json:"status"`
	Recommendation      string  `json:"recommendation"`
}

type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// SharedWindow counts requests across every instance of the service
type SharedWindow interface {
	// Record adds a request made at the given time and returns the count in the trailing hour
	Record(ctx context.Context, at time.Time) (int, error)
	Count(ctx context.Context, now time.Time) (int, error)
	// Oldest returns the earliest request in the trailing hour, ok is false when there is none
	Oldest(ctx context.Context, now time.Time) (oldest time.Time, ok bool, err error)
}

// Monitor tracks upstream usage against the hourly request budget
type Monitor struct {
	nowFunc     func() time.Time
	hourlyLimit int
	shared      SharedWindow

	mu                sync.Mutex
	totalRequests     int
	errors            int
	requestTimes      []time.Time
	responseTimes     []time.Duration
	nextResponseIndex int
	cacheHits         int
	cacheMisses       int
}

type Option func(*Monitor)

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(m *Monitor) {
		m.nowFunc = nowFunc
	}
}

func WithHourlyLimit(limit int) Option {
	return func(m *Monitor) {
		m.hourlyLimit = limit
	}
}

func WithSharedWindow(shared SharedWindow) Option {
	return func(m *Monitor) {
		m.shared = shared
	}
}

func New(opts ...Option) *Monitor {
	m := &Monitor{
		nowFunc:     time.Now,
		hourlyLimit: DefaultHourlyLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.responseTimes = make([]time.Duration, 0, responseTimeSamples)
	return m
}

func (m *Monitor) HourlyLimit() int {
	return m.hourlyLimit
}

func (m *Monitor) TrackRequest(ctx context.Context, responseTime time.Duration, isError bool) {
	now := m.nowFunc()

	m.mu.Lock()
	m.totalRequests++
	if isError {
		m.errors++
	}
	m.requestTimes = append(m.requestTimes, now)
	m.pruneLocked(now)

	if len(m.responseTimes) < responseTimeSamples {
		m.responseTimes = append(m.responseTimes, responseTime)
	} else {
		m.responseTimes[m.nextResponseIndex] = responseTime
	}
	m.nextResponseIndex = (m.nextResponseIndex + 1) % responseTimeSamples
	m.mu.Unlock()

	if m.shared != nil {
		if _, err := m.shared.Record(ctx, now); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "Failed to record request in shared window", "error", err.Error())
		}
	}
}

func (m *Monitor) TrackCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *Monitor) TrackCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

func (m *Monitor) CanMakeRequest(ctx context.Context) bool {
	used, _ := m.used(ctx)
	return used < m.hourlyLimit
}

func (m *Monitor) RateLimitInfo(ctx context.Context) RateLimitInfo {
	used, resetTime := m.used(ctx)
	return RateLimitInfo{
		Limit:     m.hourlyLimit,
		Used:      used,
		Remaining: max(0, m.hourlyLimit-used),
		ResetTime: resetTime,
	}
}

func (m *Monitor) Stats(ctx context.Context) Stats {
	used, _ := m.used(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	var averageResponseTime float64
	if len(m.responseTimes) > 0 {
		var sum time.Duration
		for _, d := range m.responseTimes {
			sum += d
		}
		averageResponseTime = float64(sum) / float64(len(m.responseTimes)) / float64(time.Millisecond)
	}

	var errorRate float64
	if m.totalRequests > 0 {
		errorRate = float64(m.errors) / float64(m.totalRequests)
	}

	var cacheHitRate float64
	if accesses := m.cacheHits + m.cacheMisses; accesses > 0 {
		cacheHitRate = float64(m.cacheHits) / float64(accesses)
	}

	status := classify(used)

	return Stats{
		TotalRequests:       m.totalRequests,
		RequestsThisHour:    used,
		AverageResponseTime: averageResponseTime,
		Errors:              m.errors,
		ErrorRate:           errorRate,
		CacheHits:           m.cacheHits,
		CacheMisses:         m.cacheMisses,
		CacheHitRate:        cacheHitRate,
		Status:              status,
		Recommendation:      recommendations[status],
	}
}

// Reset zeroes all counters. Only used to isolate tests.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests = 0
	m.errors = 0
	m.requestTimes = nil
	m.responseTimes = make([]time.Duration, 0, responseTimeSamples)
	m.nextResponseIndex = 0
	m.cacheHits = 0
	m.cacheMisses = 0
}

// used returns the requests in the trailing hour and when the window admits a new slot.
// The local window is a lower bound for the shared one.
func (m *Monitor) used(ctx context.Context) (int, time.Time) {
	now := m.nowFunc()

	m.mu.Lock()
	m.pruneLocked(now)
	used := len(m.requestTimes)
	resetTime := now
	if used > 0 {
		resetTime = slices.MinFunc(m.requestTimes, func(a, b time.Time) int {
			return a.Compare(b)
		}).Add(window)
	}
	m.mu.Unlock()

	if m.shared == nil {
		return used, resetTime
	}

	sharedUsed, err := m.shared.Count(ctx, now)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "Failed to read shared window, using local count", "error", err.Error())
		return used, resetTime
	}

	if sharedUsed <= used {
		return used, resetTime
	}

	// Other instances hold the oldest slots, the window frees up when theirs expire
	oldest, ok, err := m.shared.Oldest(ctx, now)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "Failed to read oldest shared request, using local reset time", "error", err.Error())
		return sharedUsed, resetTime
	}
	if ok {
		resetTime = oldest.Add(window)
	}

	return sharedUsed, resetTime
}

func (m *Monitor) pruneLocked(now time.Time) {
	m.requestTimes = slices.DeleteFunc(m.requestTimes, func(t time.Time) bool {
		return now.Sub(t) > window
	})
}

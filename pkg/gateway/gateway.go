package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/numgate/numgate/pkg/cache"
	"github.com/numgate/numgate/pkg/domain/lookup"
	"github.com/numgate/numgate/pkg/infra/httpx"
	"github.com/numgate/numgate/pkg/infra/metrics"
)

const (
	breakerCooldown    = 30 * time.Second
	breakerMaxFailures = 5
)

// SourceConfig describes one external lookup endpoint. The normalized number
// is appended to the URL as-is, matching the upstream query convention.
type SourceConfig struct {
	Name string
	URL  string
}

type source struct {
	name    string
	url     string
	breaker httpx.CircuitBreaker
}

// Gateway resolves a normalized number to a lookup result. It consults the
// result cache first, then walks the configured sources in order; the first
// source that yields a non-empty normalized record wins. Concurrent fetches
// for the same number are collapsed into a single upstream call.
type Gateway struct {
	sources []source
	client  httpx.Client
	cache   cache.ResultCache
	ttl     time.Duration
	strip   map[string]struct{}
	group   singleflight.Group
	logger  *logrus.Logger
}

// Config carries the gateway policy.
type Config struct {
	Sources     []SourceConfig
	CacheTTL    time.Duration
	StripFields []string
}

func New(cfg Config, client httpx.Client, resultCache cache.ResultCache, logger *logrus.Logger) *Gateway {
	sources := make([]source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		sources = append(sources, source{
			name:    sc.Name,
			url:     sc.URL,
			breaker: httpx.NewCircuitBreaker(sc.Name, breakerCooldown, breakerMaxFailures),
		})
	}
	strip := make(map[string]struct{}, len(cfg.StripFields))
	for _, f := range cfg.StripFields {
		strip[normalizeKey(f)] = struct{}{}
	}
	return &Gateway{
		sources: sources,
		client:  client,
		cache:   resultCache,
		ttl:     cfg.CacheTTL,
		strip:   strip,
		logger:  logger,
	}
}

// Fetch returns the normalized result for the number. On failure the error
// is a *lookup.FetchError whose kind tells the caller whether any source
// actually responded (not found) or none did (transport).
func (g *Gateway) Fetch(ctx context.Context, number string) (*lookup.Result, error) {
	if cached, ok := g.cache.Get(ctx, number); ok {
		var res lookup.Result
		if err := json.Unmarshal([]byte(cached), &res); err == nil {
			metrics.CacheHitsTotal.Inc()
			return &res, nil
		}
		// Corrupt entry, drop it and fetch fresh.
		g.cache.Delete(ctx, number)
	}

	v, err, _ := g.group.Do(number, func() (interface{}, error) {
		return g.fetch(ctx, number)
	})
	if err != nil {
		return nil, err
	}
	res, ok := v.(*lookup.Result)
	if !ok {
		return nil, lookup.NewTransportError(number, fmt.Errorf("unexpected result type %T", v))
	}
	return res, nil
}

func (g *Gateway) fetch(ctx context.Context, number string) (*lookup.Result, error) {
	var (
		lastErr   error
		responded int
	)

	for _, src := range g.sources {
		body, err := g.call(ctx, src, number)
		if err != nil {
			lastErr = err
			g.logger.WithError(err).WithFields(logrus.Fields{
				"source": src.name,
				"number": number,
			}).Warn("lookup source failed")
			continue
		}
		responded++

		res := normalize(number, body, g.strip)
		if res.Empty() {
			g.logger.WithFields(logrus.Fields{
				"source": src.name,
				"number": number,
			}).Debug("lookup source returned no usable data")
			continue
		}

		g.store(ctx, number, res)
		return res, nil
	}

	if responded > 0 {
		return nil, lookup.NewNotFoundError(number)
	}
	return nil, lookup.NewTransportError(number, lastErr)
}

func (g *Gateway) call(ctx context.Context, src source, number string) ([]byte, error) {
	var body []byte
	start := time.Now()
	err := src.breaker.Execute(func() error {
		status, b, err := g.client.Get(ctx, src.url+number)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected status %d", status)
		}
		body = b
		return nil
	})
	metrics.UpstreamLatency.WithLabelValues(src.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (g *Gateway) store(ctx context.Context, number string, res *lookup.Result) {
	encoded, err := json.Marshal(res)
	if err != nil {
		g.logger.WithError(err).WithField("number", number).Warn("failed to encode result for cache")
		return
	}
	g.cache.Set(ctx, number, string(encoded), g.ttl)
}

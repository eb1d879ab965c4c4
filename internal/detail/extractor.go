package detail

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/soldwatch/harvest-cli/internal/config"
	"github.com/soldwatch/harvest-cli/internal/model"
)

// Extractor fetches a detail page once and tries its strategies in
// priority order. It never fails the caller: a page that cannot be
// fetched or decoded yields nil, and the candidate keeps whatever the
// results page already supplied. All fetches share one limiter because
// every sold listing points at the same third-party host.
type Extractor struct {
	client     *http.Client
	limiter    *rate.Limiter
	strategies []Strategy
}

// NewExtractor creates an Extractor. Without explicit strategies it uses
// the embedded-state strategy first and the listings-array fallback
// second.
func NewExtractor(cfg config.DetailConfig, strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = []Strategy{InitialState{}, ListingsArray{}}
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Extractor{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
		strategies: strategies,
	}
}

// Extract fetches the linked detail page and returns whatever fields the
// first matching strategy found, or nil when the page had no extractable
// structured data. Links without an http scheme are skipped without a
// network call.
func (e *Extractor) Extract(ctx context.Context, link string) *model.PartialFields {
	log := zap.L().With(zap.String("url", link))

	if link == "" || !strings.Contains(link, "http") {
		log.Info("detail: no usable listing link, keeping results-page fields")
		return nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		log.Warn("detail: limiter wait interrupted", zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		log.Warn("detail: bad listing link", zap.Error(err))
		return nil
	}

	resp, err := e.client.Do(req)
	if err != nil {
		log.Warn("detail: fetch failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		log.Warn("detail: non-200 response", zap.Int("status", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("detail: read body failed", zap.Error(err))
		return nil
	}
	log.Debug("detail: page fetched", zap.Int("bytes", len(body)))

	for _, s := range e.strategies {
		pf, err := s.TryExtract(body)
		if err != nil {
			log.Warn("detail: strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.Error(err),
			)
			continue
		}
		if pf != nil {
			log.Debug("detail: strategy matched", zap.String("strategy", s.Name()))
			return pf
		}
	}

	log.Debug("detail: no structured data found")
	return nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soldwatch/harvest-cli/internal/config"
	"github.com/soldwatch/harvest-cli/internal/model"
	"github.com/soldwatch/harvest-cli/internal/source"
	"github.com/soldwatch/harvest-cli/internal/store"
)

// Extractor enriches a sold candidate from its detail page. A nil result
// means the page yielded nothing and the candidate keeps its
// results-page fields.
type Extractor interface {
	Extract(ctx context.Context, link string) *model.PartialFields
}

// Saver is the slice of the store the pipeline needs.
type Saver interface {
	UpsertSale(ctx context.Context, p model.Property) (store.UpsertOutcome, error)
	CreateHarvestRun(ctx context.Context, id string) error
	CompleteHarvestRun(ctx context.Context, id, status string, summary any) error
}

// Summary is the outcome of one harvest run.
type Summary struct {
	RunID   string `json:"runId"`
	Total   int    `json:"total"`
	Sold    int    `json:"sold"`
	Unsold  int    `json:"unsold"`
	NoPrice int    `json:"noPrice"`
	Stored  int    `json:"stored"`
	Failed  int    `json:"failed"`
}

// SoldPercent is the share of listings that sold, as a percentage.
func (s *Summary) SoldPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Sold) / float64(s.Total) * 100
}

// Pipeline drives one harvest: fetch the results page, classify each
// listing, enrich the sold ones concurrently, and upsert them.
type Pipeline struct {
	cfg    config.PipelineConfig
	src    source.Source
	ext    Extractor
	store  Saver
	dryRun bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDryRun classifies and enriches but skips every store write.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dryRun = dry }
}

// New creates a Pipeline.
func New(cfg config.PipelineConfig, src source.Source, ext Extractor, st Saver, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, src: src, ext: ext, store: st}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one harvest. Listing-level failures are logged and
// counted; only a failure to fetch the results page itself aborts the
// run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("runId", summary.RunID))

	listings, err := p.src.Listings(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch listings")
	}
	summary.Total = len(listings)
	log.Info("pipeline: results page fetched", zap.Int("listings", summary.Total))

	if !p.dryRun {
		// Run bookkeeping is best effort: a failed audit row must not
		// cost us the harvest.
		if err := p.store.CreateHarvestRun(ctx, summary.RunID); err != nil {
			log.Warn("pipeline: record harvest run", zap.Error(err))
		}
	}

	var (
		mu      sync.Mutex
		sold    []model.Property
		unsold  []model.RawListing
		noPrice []model.Property
		stored  []model.Property
	)

	g, gCtx := errgroup.WithContext(ctx)
	limit := p.cfg.MaxInFlight
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for _, raw := range listings {
		prop, ok := Classify(raw)
		if !ok {
			log.Info("pipeline: listing did not sell, skipping",
				zap.String("address", raw.Address),
				zap.String("result", raw.Result),
			)
			mu.Lock()
			unsold = append(unsold, raw)
			summary.Unsold++
			mu.Unlock()
			continue
		}

		log.Info("pipeline: listing sold, enriching", zap.String("address", prop.Address))
		g.Go(func() error {
			merged := model.Merge(prop, p.ext.Extract(gCtx, prop.Link))

			mu.Lock()
			summary.Sold++
			sold = append(sold, merged)
			mu.Unlock()

			// A sale without a price is reported, never persisted.
			if merged.Price == 0 {
				mu.Lock()
				noPrice = append(noPrice, merged)
				summary.NoPrice++
				mu.Unlock()
				log.Warn("pipeline: could not determine price",
					zap.String("address", merged.Address))
				return nil
			}

			if p.dryRun {
				return nil
			}
			outcome, err := p.store.UpsertSale(gCtx, merged)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				log.Error("pipeline: store sale",
					zap.String("address", merged.Address),
					zap.Error(err),
				)
				return nil
			}
			summary.Stored++
			stored = append(stored, merged)
			log.Info("pipeline: sale stored",
				zap.String("address", merged.Address),
				zap.String("outcome", string(outcome)),
				zap.Int("price", merged.Price),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: enrich listings")
	}

	log.Info("pipeline: harvest complete",
		zap.Int("total", summary.Total),
		zap.Int("sold", summary.Sold),
		zap.String("soldPercent", fmt.Sprintf("%.1f%%", summary.SoldPercent())),
		zap.Int("unsold", summary.Unsold),
		zap.Int("noPrice", summary.NoPrice),
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
	)
	dumpBucket(log, "sold", sold)
	dumpBucket(log, "unsold", unsold)
	dumpBucket(log, "noPrice", noPrice)
	dumpBucket(log, "stored", stored)

	if !p.dryRun {
		status := "completed"
		if summary.Failed > 0 {
			status = "completed_with_errors"
		}
		if err := p.store.CompleteHarvestRun(ctx, summary.RunID, status, summary); err != nil {
			log.Warn("pipeline: finalize harvest run", zap.Error(err))
		}
	}
	return summary, nil
}

func dumpBucket(log *zap.Logger, name string, bucket any) {
	if !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	b, err := json.Marshal(bucket)
	if err != nil {
		return
	}
	log.Debug("pipeline: bucket contents",
		zap.String("bucket", name),
		zap.ByteString("items", b),
	)
}

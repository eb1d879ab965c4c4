package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// UpsertOutcome reports whether an upsert created a new row or revised
// an existing one.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
)

// ErrNotConnected is returned by every operation after Close.
var ErrNotConnected = eris.New("store: not connected")

// Sale is a persisted property sale.
type Sale struct {
	ID int64 `json:"id"`
	model.Property
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaleFilter specifies criteria for listing sales.
type SaleFilter struct {
	Suburb string `json:"suburb,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// HarvestRun is the audit record of one harvest.
type HarvestRun struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

// Store defines the persistence interface for the harvest pipeline.
// Sales are keyed by (address, sold date): UpsertSale revises the
// matching row when one exists and inserts otherwise.
type Store interface {
	UpsertSale(ctx context.Context, p model.Property) (UpsertOutcome, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error)

	CreateHarvestRun(ctx context.Context, id string) error
	CompleteHarvestRun(ctx context.Context, id, status string, summary any) error
	ListHarvestRuns(ctx context.Context, limit int) ([]HarvestRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// validateIdentity rejects sales that cannot be keyed.
func validateIdentity(p model.Property) error {
	if p.Address == "" {
		return eris.New("store: sale has no address")
	}
	if p.SoldDate.IsZero() {
		return eris.Errorf("store: sale %q has no sold date", p.Address)
	}
	return nil
}

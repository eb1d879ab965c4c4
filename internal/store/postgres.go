package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/soldwatch/harvest-cli/internal/db"
	"github.com/soldwatch/harvest-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool   db.Pool
	closed atomic.Bool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sales (
	id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	address      TEXT NOT NULL,
	suburb       TEXT NOT NULL DEFAULT '',
	price        BIGINT NOT NULL DEFAULT 0,
	bedrooms     INT NOT NULL DEFAULT 0,
	bathrooms    INT NOT NULL DEFAULT 0,
	carspots     INT NOT NULL DEFAULT 0,
	date         DATE NOT NULL,
	link         TEXT NOT NULL DEFAULT '',
	propertyType TEXT NOT NULL DEFAULT '',
	landSize     DOUBLE PRECISION NOT NULL DEFAULT 0,
	latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	otherdata    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (address, date)
);

CREATE INDEX IF NOT EXISTS idx_sales_suburb ON sales(suburb);
CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(date);

CREATE TABLE IF NOT EXISTS harvest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}

// UpsertSale looks up an existing sale by (address, sold date) and
// revises it, inserting when no row matches.
func (s *PostgresStore) UpsertSale(ctx context.Context, p model.Property) (UpsertOutcome, error) {
	if s.closed.Load() {
		return "", ErrNotConnected
	}
	if err := validateIdentity(p); err != nil {
		return "", err
	}

	date := p.SoldDateKey()
	now := time.Now().UTC()

	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM sales WHERE address = $1 AND date = $2`,
		p.Address, date,
	).Scan(&id)

	switch {
	case err == nil:
		_, err = s.pool.Exec(ctx,
			`UPDATE sales SET suburb = $1, price = $2, bedrooms = $3, bathrooms = $4,
				carspots = $5, link = $6, propertyType = $7, landSize = $8,
				latitude = $9, longitude = $10, otherdata = $11, updated_at = $12
			 WHERE id = $13`,
			p.Suburb, p.Price, p.Bedrooms, p.Bathrooms, p.Carspots, p.Link,
			p.PropertyType, p.LandSize, p.Latitude, p.Longitude, otherdataArg(p), now, id,
		)
		if err != nil {
			return "", eris.Wrapf(err, "postgres: update sale %q", p.Address)
		}
		return OutcomeUpdated, nil

	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.pool.Exec(ctx,
			`INSERT INTO sales (address, suburb, price, bedrooms, bathrooms, carspots,
				date, link, propertyType, landSize, latitude, longitude, otherdata,
				created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			p.Address, p.Suburb, p.Price, p.Bedrooms, p.Bathrooms, p.Carspots,
			date, p.Link, p.PropertyType, p.LandSize, p.Latitude, p.Longitude,
			otherdataArg(p), now, now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "postgres: insert sale %q", p.Address)
		}
		return OutcomeInserted, nil

	default:
		return "", eris.Wrapf(err, "postgres: look up sale %q", p.Address)
	}
}

func (s *PostgresStore) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	if s.closed.Load() {
		return nil, ErrNotConnected
	}

	query := `SELECT id, address, suburb, price, bedrooms, bathrooms, carspots, date,
		link, propertyType, landSize, latitude, longitude, otherdata, created_at, updated_at
		FROM sales WHERE 1=1`
	var args []any

	if filter.Suburb != "" {
		args = append(args, filter.Suburb)
		query += fmt.Sprintf(` AND suburb = $%d`, len(args))
	}
	query += ` ORDER BY date DESC, address`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sales")
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var (
			sale      Sale
			date      time.Time
			otherdata *string
		)
		err := rows.Scan(&sale.ID, &sale.Address, &sale.Suburb, &sale.Price,
			&sale.Bedrooms, &sale.Bathrooms, &sale.Carspots, &date, &sale.Link,
			&sale.PropertyType, &sale.LandSize, &sale.Latitude, &sale.Longitude,
			&otherdata, &sale.CreatedAt, &sale.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan sale")
		}
		sale.SoldDate = date.UTC()
		if otherdata != nil {
			sale.OriginalData = json.RawMessage(*otherdata)
		}
		sales = append(sales, sale)
	}
	return sales, eris.Wrap(rows.Err(), "postgres: list sales iterate")
}

func (s *PostgresStore) CreateHarvestRun(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO harvest_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, "running", time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert harvest run %s", id)
}

func (s *PostgresStore) CompleteHarvestRun(ctx context.Context, id, status string, summary any) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE harvest_runs SET status = $1, summary = $2, finished_at = $3 WHERE id = $4`,
		status, summaryJSON, time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "postgres: complete harvest run %s", id)
}

func (s *PostgresStore) ListHarvestRuns(ctx context.Context, limit int) ([]HarvestRun, error) {
	if s.closed.Load() {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, summary, started_at, finished_at FROM harvest_runs
		 ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list harvest runs")
	}
	defer rows.Close()

	var runs []HarvestRun
	for rows.Next() {
		var (
			run      HarvestRun
			summary  *string
			finished *time.Time
		)
		if err := rows.Scan(&run.ID, &run.Status, &summary, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan harvest run")
		}
		if summary != nil {
			run.Summary = json.RawMessage(*summary)
		}
		run.FinishedAt = finished
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list harvest runs iterate")
}

func otherdataArg(p model.Property) any {
	if len(p.OriginalData) == 0 {
		return nil
	}
	return string(p.OriginalData)
}

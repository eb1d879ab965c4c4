package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sales (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	address      TEXT NOT NULL,
	suburb       TEXT NOT NULL DEFAULT '',
	price        INTEGER NOT NULL DEFAULT 0,
	bedrooms     INTEGER NOT NULL DEFAULT 0,
	bathrooms    INTEGER NOT NULL DEFAULT 0,
	carspots     INTEGER NOT NULL DEFAULT 0,
	date         TEXT NOT NULL,
	link         TEXT NOT NULL DEFAULT '',
	propertyType TEXT NOT NULL DEFAULT '',
	landSize     REAL NOT NULL DEFAULT 0,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	otherdata    TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (address, date)
);

CREATE INDEX IF NOT EXISTS idx_sales_suburb ON sales(suburb);
CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(date);

CREATE TABLE IF NOT EXISTS harvest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// UpsertSale looks up an existing sale by (address, sold date) and
// revises it, inserting when no row matches.
func (s *SQLiteStore) UpsertSale(ctx context.Context, p model.Property) (UpsertOutcome, error) {
	if s.closed.Load() {
		return "", ErrNotConnected
	}
	if err := validateIdentity(p); err != nil {
		return "", err
	}

	date := p.SoldDateKey()
	now := time.Now().UTC()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sales WHERE address = ? AND date = ?`,
		p.Address, date,
	).Scan(&id)

	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx,
			`UPDATE sales SET suburb = ?, price = ?, bedrooms = ?, bathrooms = ?,
				carspots = ?, link = ?, propertyType = ?, landSize = ?,
				latitude = ?, longitude = ?, otherdata = ?, updated_at = ?
			 WHERE id = ?`,
			p.Suburb, p.Price, p.Bedrooms, p.Bathrooms, p.Carspots, p.Link,
			p.PropertyType, p.LandSize, p.Latitude, p.Longitude, otherdataArg(p), now, id,
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: update sale %q", p.Address)
		}
		return OutcomeUpdated, nil

	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sales (address, suburb, price, bedrooms, bathrooms, carspots,
				date, link, propertyType, landSize, latitude, longitude, otherdata,
				created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Address, p.Suburb, p.Price, p.Bedrooms, p.Bathrooms, p.Carspots,
			date, p.Link, p.PropertyType, p.LandSize, p.Latitude, p.Longitude,
			otherdataArg(p), now, now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: insert sale %q", p.Address)
		}
		return OutcomeInserted, nil

	default:
		return "", eris.Wrapf(err, "sqlite: look up sale %q", p.Address)
	}
}

func (s *SQLiteStore) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	if s.closed.Load() {
		return nil, ErrNotConnected
	}

	query := `SELECT id, address, suburb, price, bedrooms, bathrooms, carspots, date,
		link, propertyType, landSize, latitude, longitude, otherdata, created_at, updated_at
		FROM sales WHERE 1=1`
	var args []any

	if filter.Suburb != "" {
		query += ` AND suburb = ?`
		args = append(args, filter.Suburb)
	}
	query += ` ORDER BY date DESC, address`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sales")
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var (
			sale      Sale
			date      string
			otherdata sql.NullString
		)
		err := rows.Scan(&sale.ID, &sale.Address, &sale.Suburb, &sale.Price,
			&sale.Bedrooms, &sale.Bathrooms, &sale.Carspots, &date, &sale.Link,
			&sale.PropertyType, &sale.LandSize, &sale.Latitude, &sale.Longitude,
			&otherdata, &sale.CreatedAt, &sale.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sale")
		}
		if sale.SoldDate, err = time.Parse("2006-01-02", date); err != nil {
			return nil, eris.Wrapf(err, "sqlite: sale %d has bad date", sale.ID)
		}
		if otherdata.Valid {
			sale.OriginalData = json.RawMessage(otherdata.String)
		}
		sales = append(sales, sale)
	}
	return sales, eris.Wrap(rows.Err(), "sqlite: list sales iterate")
}

func (s *SQLiteStore) CreateHarvestRun(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO harvest_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, "running", time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert harvest run %s", id)
}

func (s *SQLiteStore) CompleteHarvestRun(ctx context.Context, id, status string, summary any) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE harvest_runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		status, string(summaryJSON), time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "sqlite: complete harvest run %s", id)
}

func (s *SQLiteStore) ListHarvestRuns(ctx context.Context, limit int) ([]HarvestRun, error) {
	if s.closed.Load() {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, summary, started_at, finished_at FROM harvest_runs
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list harvest runs")
	}
	defer rows.Close()

	var runs []HarvestRun
	for rows.Next() {
		var (
			run      HarvestRun
			summary  sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Status, &summary, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan harvest run")
		}
		if summary.Valid {
			run.Summary = json.RawMessage(summary.String)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list harvest runs iterate")
}

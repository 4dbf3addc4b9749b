package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS signals (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source       TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	city         TEXT,
	state        TEXT,
	latitude     REAL,
	longitude    REAL,
	rating       REAL,
	review_count INTEGER,
	metadata     TEXT,
	captured_at  DATETIME,
	processed    INTEGER NOT NULL DEFAULT 0,
	processed_at DATETIME,
	batch_id     TEXT,
	UNIQUE(source, source_id)
);

CREATE TABLE IF NOT EXISTS opportunities (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL,
	category         TEXT NOT NULL,
	subcategory      TEXT,
	severity_score   REAL NOT NULL DEFAULT 0,
	market_size      TEXT,
	country          TEXT,
	region           TEXT,
	city             TEXT,
	latitude         REAL,
	longitude        REAL,
	source_ids       TEXT,
	validation_count INTEGER NOT NULL DEFAULT 1,
	validation_score INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signal_links (
	opportunity_id     TEXT NOT NULL REFERENCES opportunities(id),
	signal_id          INTEGER NOT NULL REFERENCES signals(id),
	contribution_score REAL NOT NULL DEFAULT 0,
	matched_pattern    TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (opportunity_id, signal_id)
);

CREATE INDEX IF NOT EXISTS idx_signals_processed ON signals(processed);
CREATE INDEX IF NOT EXISTS idx_signals_captured_at ON signals(captured_at);
CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category);
CREATE INDEX IF NOT EXISTS idx_opportunities_city ON opportunities(city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertSignal(ctx context.Context, sig *model.RawSignal) error {
	var metadataJSON any
	if sig.Metadata != nil {
		b, err := json.Marshal(sig.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal signal metadata")
		}
		metadataJSON = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (source, source_id, title, content, city, state, latitude, longitude, rating, review_count, metadata, captured_at, processed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(source, source_id) DO NOTHING`,
		sig.Source, sig.SourceID, sig.Title, sig.Content,
		nullIfEmpty(sig.City), nullIfEmpty(sig.State),
		sig.Latitude, sig.Longitude, sig.Rating, sig.ReviewCount,
		metadataJSON, sig.CapturedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert signal %s/%s", sig.Source, sig.SourceID)
	}

	// On a duplicate (source, source_id) nothing is inserted and the stale
	// last-insert id must not be copied onto the signal.
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		if id, err := res.LastInsertId(); err == nil {
			sig.ID = id
		}
	}
	return nil
}

func (s *SQLiteStore) LoadUnprocessed(ctx context.Context, limit int) ([]model.RawSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, source_id, title, content, city, state, latitude, longitude, rating, review_count, metadata, captured_at, processed, batch_id
		 FROM signals WHERE processed = 0
		 ORDER BY captured_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load unprocessed")
	}
	defer rows.Close()

	var signals []model.RawSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	return signals, eris.Wrap(rows.Err(), "sqlite: load unprocessed iterate")
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, ids []int64, batchID string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, batchID, ts.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE signals SET processed = 1, batch_id = ?, processed_at = ? WHERE id IN (%s)`, placeholders),
		args...,
	)
	return eris.Wrapf(err, "sqlite: mark processed batch %s", batchID)
}

func (s *SQLiteStore) SignalStats(ctx context.Context) (*SignalStats, error) {
	var stats SignalStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM signals`,
	).Scan(&stats.Total, &stats.Processed)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: signal stats")
	}
	stats.Unprocessed = stats.Total - stats.Processed
	return &stats, nil
}

func (s *SQLiteStore) FindCandidates(ctx context.Context, category, city string, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities
		 WHERE status = 'active'
		   AND category LIKE '%' || ? || '%'
		   AND COALESCE(city, '') LIKE '%' || ? || '%'
		 ORDER BY created_at DESC
		 LIMIT ?`,
		category, city, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find candidates")
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, opp *model.Opportunity) (string, error) {
	if opp.ID == "" {
		opp.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	opp.CreatedAt = now
	opp.UpdatedAt = now
	if opp.Status == "" {
		opp.Status = model.OpportunityStatusActive
	}

	sourceIDs, err := json.Marshal(opp.SourceIDs)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal source ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, title, description, category, subcategory, severity_score, market_size, country, region, city, latitude, longitude, source_ids, validation_count, validation_score, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opp.ID, opp.Title, opp.Description, opp.Category, nullIfEmpty(opp.Subcategory),
		opp.SeverityScore, string(opp.MarketSize),
		nullIfEmpty(opp.Country), nullIfEmpty(opp.Region), nullIfEmpty(opp.City),
		opp.Latitude, opp.Longitude, string(sourceIDs),
		opp.ValidationCount, opp.ValidationScore, string(opp.Status), now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert opportunity")
	}
	return opp.ID, nil
}

func (s *SQLiteStore) IncrementValidationCount(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET validation_count = validation_count + ?, updated_at = datetime('now') WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment validation count %s", id)
	}
	return checkRowsAffected(res, "opportunity", id)
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list opportunities")
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (s *SQLiteStore) LinkSignal(ctx context.Context, link model.SignalLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO signal_links (opportunity_id, signal_id, contribution_score, matched_pattern)
		 VALUES (?, ?, ?, ?)`,
		link.OpportunityID, link.SignalID, link.ContributionScore, nullIfEmpty(link.MatchedPattern),
	)
	return eris.Wrapf(err, "sqlite: link signal %d to %s", link.SignalID, link.OpportunityID)
}

// helpers

const opportunityColumns = `id, title, description, category, subcategory, severity_score, market_size, country, region, city, latitude, longitude, source_ids, validation_count, validation_score, status, created_at, updated_at`

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSignal(row scannable) (*model.RawSignal, error) {
	var sig model.RawSignal
	var city, state, metadata, batchID sql.NullString
	var capturedAt sql.NullTime
	var processed int

	err := row.Scan(
		&sig.ID, &sig.Source, &sig.SourceID, &sig.Title, &sig.Content,
		&city, &state, &sig.Latitude, &sig.Longitude, &sig.Rating, &sig.ReviewCount,
		&metadata, &capturedAt, &processed, &batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan signal")
	}

	sig.City = city.String
	sig.State = state.String
	sig.BatchID = batchID.String
	sig.Processed = processed != 0
	if capturedAt.Valid {
		t := capturedAt.Time
		sig.CapturedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &sig.Metadata); err != nil {
			// A malformed metadata payload degrades to an empty map rather
			// than poisoning the batch.
			sig.Metadata = nil
		}
	}
	return &sig, nil
}

func collectOpportunities(rows *sql.Rows) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	for rows.Next() {
		var o model.Opportunity
		var subcategory, marketSize, country, region, city, sourceIDs, status sql.NullString

		err := rows.Scan(
			&o.ID, &o.Title, &o.Description, &o.Category, &subcategory,
			&o.SeverityScore, &marketSize, &country, &region, &city,
			&o.Latitude, &o.Longitude, &sourceIDs,
			&o.ValidationCount, &o.ValidationScore, &status, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}

		o.Subcategory = subcategory.String
		o.MarketSize = model.MarketSizeClass(marketSize.String)
		o.Country = country.String
		o.Region = region.String
		o.City = city.String
		o.Status = model.OpportunityStatus(status.String)
		if sourceIDs.Valid && sourceIDs.String != "" {
			if err := json.Unmarshal([]byte(sourceIDs.String), &o.SourceIDs); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal source ids")
			}
		}
		opps = append(opps, o)
	}
	return opps, eris.Wrap(rows.Err(), "sqlite: iterate opportunities")
}

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Narrowed so tests can
// substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot pipeline operations.
var preparedStatements = map[string]string{
	"link_signal": `INSERT INTO signal_links (opportunity_id, signal_id, contribution_score, matched_pattern) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
	"bump_count":  `UPDATE opportunities SET validation_count = validation_count + $1, updated_at = now() WHERE id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS signals (
	id           BIGSERIAL PRIMARY KEY,
	source       TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	city         TEXT,
	state        TEXT,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	rating       DOUBLE PRECISION,
	review_count INTEGER,
	metadata     JSONB,
	captured_at  TIMESTAMPTZ,
	processed    BOOLEAN NOT NULL DEFAULT FALSE,
	processed_at TIMESTAMPTZ,
	batch_id     TEXT,
	UNIQUE(source, source_id)
);

CREATE TABLE IF NOT EXISTS opportunities (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL,
	category         TEXT NOT NULL,
	subcategory      TEXT,
	severity_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	market_size      TEXT,
	country          TEXT,
	region           TEXT,
	city             TEXT,
	latitude         DOUBLE PRECISION,
	longitude        DOUBLE PRECISION,
	location         BYTEA,
	source_ids       JSONB,
	validation_count INTEGER NOT NULL DEFAULT 1,
	validation_score INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signal_links (
	opportunity_id     TEXT NOT NULL REFERENCES opportunities(id),
	signal_id          BIGINT NOT NULL REFERENCES signals(id),
	contribution_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	matched_pattern    TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (opportunity_id, signal_id)
);

CREATE INDEX IF NOT EXISTS idx_signals_processed ON signals(processed) WHERE NOT processed;
CREATE INDEX IF NOT EXISTS idx_signals_captured_at ON signals(captured_at);
CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category);
CREATE INDEX IF NOT EXISTS idx_opportunities_city ON opportunities(city);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) InsertSignal(ctx context.Context, sig *model.RawSignal) error {
	var metadataJSON []byte
	if sig.Metadata != nil {
		b, err := json.Marshal(sig.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal signal metadata")
		}
		metadataJSON = b
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO signals (source, source_id, title, content, city, state, latitude, longitude, rating, review_count, metadata, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (source, source_id) DO UPDATE SET source = EXCLUDED.source
		 RETURNING id`,
		sig.Source, sig.SourceID, sig.Title, sig.Content,
		nullIfEmpty(sig.City), nullIfEmpty(sig.State),
		sig.Latitude, sig.Longitude, sig.Rating, sig.ReviewCount,
		metadataJSON, sig.CapturedAt,
	).Scan(&sig.ID)
	return eris.Wrapf(err, "postgres: insert signal %s/%s", sig.Source, sig.SourceID)
}

func (s *PostgresStore) LoadUnprocessed(ctx context.Context, limit int) ([]model.RawSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, source_id, title, content, city, state, latitude, longitude, rating, review_count, metadata, captured_at, processed, batch_id
		 FROM signals WHERE NOT processed
		 ORDER BY captured_at DESC NULLS LAST, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load unprocessed")
	}
	defer rows.Close()

	var signals []model.RawSignal
	for rows.Next() {
		var sig model.RawSignal
		var city, state, batchID *string
		var metadataJSON []byte

		err := rows.Scan(
			&sig.ID, &sig.Source, &sig.SourceID, &sig.Title, &sig.Content,
			&city, &state, &sig.Latitude, &sig.Longitude, &sig.Rating, &sig.ReviewCount,
			&metadataJSON, &sig.CapturedAt, &sig.Processed, &batchID,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		if city != nil {
			sig.City = *city
		}
		if state != nil {
			sig.State = *state
		}
		if batchID != nil {
			sig.BatchID = *batchID
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &sig.Metadata); err != nil {
				sig.Metadata = nil
			}
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "postgres: load unprocessed iterate")
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, ids []int64, batchID string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE signals SET processed = TRUE, batch_id = $1, processed_at = $2 WHERE id = ANY($3)`,
		batchID, ts.UTC(), ids,
	)
	return eris.Wrapf(err, "postgres: mark processed batch %s", batchID)
}

func (s *PostgresStore) SignalStats(ctx context.Context) (*SignalStats, error) {
	var stats SignalStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE processed) FROM signals`,
	).Scan(&stats.Total, &stats.Processed)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: signal stats")
	}
	stats.Unprocessed = stats.Total - stats.Processed
	return &stats, nil
}

func (s *PostgresStore) FindCandidates(ctx context.Context, category, city string, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities
		 WHERE status = 'active'
		   AND category ILIKE '%' || $1 || '%'
		   AND COALESCE(city, '') ILIKE '%' || $2 || '%'
		 ORDER BY created_at DESC
		 LIMIT $3`,
		category, city, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find candidates")
	}
	defer rows.Close()
	return collectPgOpportunities(rows)
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, opp *model.Opportunity) (string, error) {
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
		return "", eris.Wrap(err, "postgres: marshal source ids")
	}

	var location []byte
	if opp.Latitude != nil && opp.Longitude != nil {
		pt := geom.NewPointFlat(geom.XY, []float64{*opp.Longitude, *opp.Latitude})
		pt.SetSRID(4326)
		location, err = ewkb.Marshal(pt, ewkb.NDR)
		if err != nil {
			return "", eris.Wrap(err, "postgres: encode location")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO opportunities (id, title, description, category, subcategory, severity_score, market_size, country, region, city, latitude, longitude, location, source_ids, validation_count, validation_score, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		opp.ID, opp.Title, opp.Description, opp.Category, nullIfEmpty(opp.Subcategory),
		opp.SeverityScore, string(opp.MarketSize),
		nullIfEmpty(opp.Country), nullIfEmpty(opp.Region), nullIfEmpty(opp.City),
		opp.Latitude, opp.Longitude, location, sourceIDs,
		opp.ValidationCount, opp.ValidationScore, string(opp.Status), now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert opportunity")
	}
	return opp.ID, nil
}

func (s *PostgresStore) IncrementValidationCount(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET validation_count = validation_count + $1, updated_at = now() WHERE id = $2`,
		delta, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment validation count %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("opportunity not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()
	return collectPgOpportunities(rows)
}

func (s *PostgresStore) LinkSignal(ctx context.Context, link model.SignalLink) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signal_links (opportunity_id, signal_id, contribution_score, matched_pattern)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		link.OpportunityID, link.SignalID, link.ContributionScore, nullIfEmpty(link.MatchedPattern),
	)
	return eris.Wrapf(err, "postgres: link signal %d to %s", link.SignalID, link.OpportunityID)
}

func collectPgOpportunities(rows pgx.Rows) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	for rows.Next() {
		var o model.Opportunity
		var subcategory, marketSize, country, region, city, status *string
		var sourceIDs []byte

		err := rows.Scan(
			&o.ID, &o.Title, &o.Description, &o.Category, &subcategory,
			&o.SeverityScore, &marketSize, &country, &region, &city,
			&o.Latitude, &o.Longitude, &sourceIDs,
			&o.ValidationCount, &o.ValidationScore, &status, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}

		if subcategory != nil {
			o.Subcategory = *subcategory
		}
		if marketSize != nil {
			o.MarketSize = model.MarketSizeClass(*marketSize)
		}
		if country != nil {
			o.Country = *country
		}
		if region != nil {
			o.Region = *region
		}
		if city != nil {
			o.City = *city
		}
		if status != nil {
			o.Status = model.OpportunityStatus(*status)
		}
		if len(sourceIDs) > 0 {
			if err := json.Unmarshal(sourceIDs, &o.SourceIDs); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal source ids")
			}
		}
		opps = append(opps, o)
	}
	return opps, eris.Wrap(rows.Err(), "postgres: iterate opportunities")
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/db"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/resilience"
)

// PostgresStore implements DigestStore using pgxpool. Updates lock the
// digest row with SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	retry   resilience.RetryConfig
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresWithPool(pool, pool.Close), nil
}

func newPostgresWithPool(pool db.Pool, closeFn func()) *PostgresStore {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres", "update digest")
	return &PostgresStore{pool: pool, closeFn: closeFn, retry: retry}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS digests (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	payload    JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_digests_created_at ON digests(created_at DESC);
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

func (s *PostgresStore) Save(ctx context.Context, d *model.Digest) (*model.Digest, error) {
	next := prepareNew(d)
	payload, err := json.Marshal(next)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal digest")
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("postgres", "save digest")
	err = resilience.Do(ctx, retry, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO digests (id, created_at, updated_at, payload) VALUES ($1, $2, $3, $4)`,
			next.ID, next.CreatedAt, time.Now().UTC(), payload,
		)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert digest")
	}
	return next, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Digest, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM digests WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get digest %s", id)
	}
	return decodeDigest(payload)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.Digest, error) {
	q := psql.Select("payload").From("digests").OrderBy("created_at DESC", "id")
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filter.Since})
	}
	query, args, err := applyPaging(q, filter).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list digests")
	}
	defer rows.Close()

	out := []model.Digest{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan digest")
		}
		d, err := decodeDigest(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate digests")
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Digest, error) {
	var result *model.Digest
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		d, err := s.updateOnce(ctx, id, fn)
		if err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) updateOnce(ctx context.Context, id string, fn UpdateFunc) (*model.Digest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var payload []byte
	err = tx.QueryRow(ctx, `SELECT payload FROM digests WHERE id = $1 FOR UPDATE`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: lock digest %s", id)
	}
	current, err := decodeDigest(payload)
	if err != nil {
		return nil, err
	}

	next, err := applyUpdate(current, fn)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(next)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal digest")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE digests SET payload = $1, updated_at = $2 WHERE id = $3`,
		buf, time.Now().UTC(), id,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: update digest %s", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit")
	}
	return next, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM digests`)
	return eris.Wrap(err, "postgres: clear digests")
}

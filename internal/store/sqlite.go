package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/resilience"
)

// sqliteTime sorts lexically in chronological order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements DigestStore using modernc.org/sqlite. Updates run
// in BEGIN IMMEDIATE transactions so concurrent writers queue on the
// database lock.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: database_url is required")
	}
	db, err := sql.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("sqlite", "update digest")
	return &SQLiteStore{db: db, retry: retry}, nil
}

// withBusyTimeout sets busy_timeout on every pooled connection, not just the
// one that runs the PRAGMA below.
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS digests (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_digests_created_at ON digests(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, d *model.Digest) (*model.Digest, error) {
	next := prepareNew(d)
	payload, err := json.Marshal(next)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal digest")
	}

	now := time.Now().UTC().Format(sqliteTime)
	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO digests (id, created_at, updated_at, payload) VALUES (?, ?, ?, ?)`,
			next.ID, next.CreatedAt.UTC().Format(sqliteTime), now, string(payload),
		)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert digest")
	}
	return next, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Digest, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM digests WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get digest %s", id)
	}
	return decodeDigest([]byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.Digest, error) {
	q := sq.Select("payload").From("digests").OrderBy("created_at DESC", "id")
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filter.Since.UTC().Format(sqliteTime)})
	}
	if filter.Offset > 0 && filter.Limit <= 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		q = q.Limit(math.MaxInt64)
	}
	q = applyPaging(q, filter)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list digests")
	}
	defer func() { _ = rows.Close() }()

	out := []model.Digest{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan digest")
		}
		d, err := decodeDigest([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate digests")
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Digest, error) {
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

func (s *SQLiteStore) updateOnce(ctx context.Context, id string, fn UpdateFunc) (_ *model.Digest, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: acquire connection")
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, eris.Wrap(err, "sqlite: begin immediate")
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	var payload string
	err = conn.QueryRowContext(ctx, `SELECT payload FROM digests WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load digest %s", id)
	}
	current, err := decodeDigest([]byte(payload))
	if err != nil {
		return nil, err
	}

	next, err := applyUpdate(current, fn)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(next)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal digest")
	}

	if _, err := conn.ExecContext(ctx,
		`UPDATE digests SET payload = ?, updated_at = ? WHERE id = ?`,
		string(buf), time.Now().UTC().Format(sqliteTime), id,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update digest %s", id)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	committed = true
	return next, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM digests`)
	return eris.Wrap(err, "sqlite: clear digests")
}

func decodeDigest(payload []byte) (*model.Digest, error) {
	var d model.Digest
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, eris.Wrap(err, "store: decode digest")
	}
	prepare(&d)
	return &d, nil
}

func applyPaging(q sq.SelectBuilder, f ListFilter) sq.SelectBuilder {
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

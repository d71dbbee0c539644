// Package store persists digests. Three drivers share one contract: a JSON
// file, SQLite, and Postgres. Every driver serializes updates per digest.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/review"
)

// Driver names.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ListFilter narrows List results. Zero values mean no limit.
type ListFilter struct {
	Since  time.Time
	Limit  int
	Offset int
}

// UpdateFunc receives the current digest and returns its replacement. It
// runs while the digest is locked and may be called again if the write is
// retried, so it must not have side effects.
type UpdateFunc func(current *model.Digest) (*model.Digest, error)

// DigestStore persists digests.
type DigestStore interface {
	// Save assigns an id (and a creation time when unset) and stores d.
	Save(ctx context.Context, d *model.Digest) (*model.Digest, error)
	// Get returns model.ErrDigestNotFound for an unknown id.
	Get(ctx context.Context, id string) (*model.Digest, error)
	// List returns digests newest first.
	List(ctx context.Context, filter ListFilter) ([]model.Digest, error)
	// Update applies fn to the digest under a per-digest lock.
	Update(ctx context.Context, id string, fn UpdateFunc) (*model.Digest, error)
	// Clear removes every digest.
	Clear(ctx context.Context) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store named by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (DigestStore, error) {
	var (
		s   DigestStore
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverJSON:
		s, err = NewJSON(cfg.JSONPath)
	case DriverSQLite:
		s, err = NewSQLite(cfg.DatabaseURL)
	case DriverPostgres:
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// prepare readies a digest for writing: a missing record id gets a fresh
// uuid and review state is normalized.
func prepare(d *model.Digest) {
	for i := range d.Records {
		if strings.TrimSpace(d.Records[i].ID) == "" {
			d.Records[i].ID = uuid.New().String()
		}
	}
	if d.Records == nil {
		d.Records = []model.PersistedRecord{}
	}
	review.Normalize(d)
}

// prepareNew assigns identity to a digest being saved for the first time.
func prepareNew(d *model.Digest) *model.Digest {
	cp := *d
	cp.Records = append([]model.PersistedRecord(nil), d.Records...)
	cp.ID = uuid.New().String()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	prepare(&cp)
	return &cp
}

// applyUpdate runs fn against current and keeps the identity of the stored
// digest regardless of what fn returns.
func applyUpdate(current *model.Digest, fn UpdateFunc) (*model.Digest, error) {
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, eris.New("store: update returned no digest")
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	prepare(next)
	return next, nil
}

func notFound(id string) error {
	return eris.Wrapf(model.ErrDigestNotFound, "digest %s", id)
}

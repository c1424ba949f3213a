package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklepek/case-study/internal/orders"
)

// fakeDB records every statement Delete issues, so tests can assert the
// product row lock is taken before the in-use guard reads.
type fakeDB struct {
	sqls      []string
	missing   bool
	inUse     bool
	committed bool
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sqls = append(f.sqls, sql)
	return nil, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sqls = append(f.sqls, sql)
	switch {
	case strings.Contains(sql, "FOR UPDATE"):
		if f.missing {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: int64(1)}
	case strings.Contains(sql, "EXISTS"):
		return fakeRow{val: f.inUse}
	}
	return fakeRow{}
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: f}, nil
}

type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error   { t.db.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int64:
		*d = r.val.(int64)
	case *bool:
		*d = r.val.(bool)
	}
	return nil
}

func TestDelete_LocksProductBeforeGuard(t *testing.T) {
	db := &fakeDB{}
	repo := &Repo{DB: db}

	require.NoError(t, repo.Delete(context.Background(), 1))

	require.Len(t, db.sqls, 3)
	assert.Contains(t, db.sqls[0], "FOR UPDATE")
	assert.Contains(t, db.sqls[1], "EXISTS")
	assert.Contains(t, db.sqls[2], "DELETE FROM products")
	assert.True(t, db.committed)
}

func TestDelete_MissingProduct(t *testing.T) {
	db := &fakeDB{missing: true}
	repo := &Repo{DB: db}

	err := repo.Delete(context.Background(), 42)

	require.ErrorIs(t, err, orders.ErrProductNotFound)
	assert.False(t, db.committed)
}

func TestDelete_InUseLeavesProductAlone(t *testing.T) {
	db := &fakeDB{inUse: true}
	repo := &Repo{DB: db}

	err := repo.Delete(context.Background(), 1)

	require.ErrorIs(t, err, ErrProductInUse)
	for _, q := range db.sqls {
		assert.NotContains(t, q, "DELETE FROM products")
	}
	assert.False(t, db.committed)
}

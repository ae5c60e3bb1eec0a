package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"maternar/store"
)

// Repository is the relational store.Store. It wraps one *gorm.DB, which is
// either the shared pool or an open transaction.
type Repository struct {
	db   *gorm.DB
	inTx bool
}

var _ store.Store = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Query runs a raw parameterized SELECT and scans the rows into dest.
func (r *Repository) Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translate(r.conn(ctx).Raw(query, args...).Scan(dest).Error, "query")
}

// Exec runs a raw parameterized statement and reports the affected rows.
func (r *Repository) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res := r.conn(ctx).Exec(query, args...)
	return res.RowsAffected, translate(res.Error, "exec")
}

// Insert creates one row from the model pointer v.
func (r *Repository) Insert(ctx context.Context, v interface{}) error {
	return translate(r.conn(ctx).Create(v).Error, "insert")
}

// Update saves every column of the model pointer v.
func (r *Repository) Update(ctx context.Context, v interface{}) error {
	res := r.conn(ctx).Save(v)
	if res.Error != nil {
		return translate(res.Error, "update")
	}
	return nil
}

// Delete removes the row of model with the given primary key.
func (r *Repository) Delete(ctx context.Context, model interface{}, id interface{}) error {
	res := r.conn(ctx).Delete(model, id)
	if res.Error != nil {
		return translate(res.Error, "delete")
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Begin opens a transaction and returns a Repository bound to it.
func (r *Repository) Begin(ctx context.Context) (*Repository, error) {
	tx := r.conn(ctx).Begin()
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "begin transaction")
	}
	return &Repository{db: tx, inTx: true}, nil
}

func (r *Repository) Commit() error {
	if !r.inTx {
		return errors.New("commit outside of a transaction")
	}
	return errors.Wrap(r.db.Commit().Error, "commit transaction")
}

func (r *Repository) Rollback() error {
	if !r.inTx {
		return errors.New("rollback outside of a transaction")
	}
	return errors.Wrap(r.db.Rollback().Error, "rollback transaction")
}

// WithTx runs fn in a transaction. Calls made on an already transactional
// Repository join the open transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx store.Store) error) (err error) {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql.DB")
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto the store sentinels and adds context to
// the rest.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	default:
		return errors.Wrapf(err, "db %s", op)
	}
}

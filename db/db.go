package db

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configures the relational connection.
type Options struct {
	URL             string
	Timezone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a GORM connection to PostgreSQL with pooling configured.
func Open(opts Options) (*gorm.DB, error) {
	if opts.URL == "" {
		return nil, errors.New("database URL is required")
	}

	dsn, err := ensureTimezone(opts.URL, opts.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database URL")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return errors.Wrap(sqlDB.Close(), "failed to close database connection")
}

// ensureTimezone sets the TimeZone connection parameter unless the URL
// already carries one.
func ensureTimezone(databaseURL, tz string) (string, error) {
	if tz == "" {
		tz = "UTC"
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("TimeZone") == "" {
		q.Set("TimeZone", tz)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/record"
)

// Store is the collector's durable state: snapshots, clients, alerts, package
// sets and report markers. All writes go through a single connection.
type Store struct {
	db       *gorm.DB
	recorder *record.Recorder
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock used for retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens the SQLite database at path.
func Open(path string, log *slog.Logger, debug bool, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, wrap("open", err)
	}
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, wrap("open", err)
	}
	return New(db, opts...)
}

// New migrates db and wraps it. The pool is capped at one connection.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap("open", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Client{},
		&model.Metrics{},
		&model.Alert{},
		&model.PackageUpdateSet{},
		&model.ReportMarker{},
	); err != nil {
		return nil, wrap("migrate", err)
	}

	s := &Store{
		db:       db,
		recorder: record.NewRecorder(db),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("close", err)
	}
	return wrap("close", sqlDB.Close())
}

// wrap maps gorm failures onto the model error taxonomy.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrDuplicate):
		return err
	}
	var serr *model.StorageError
	if errors.As(err, &serr) {
		return err
	}
	return &model.StorageError{Op: op, Err: err}
}

func (s *Store) ctx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

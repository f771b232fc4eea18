// Package pgstore keeps slots in a Postgres table. The schema is managed
// with golang-migrate (see Migrate and the embedded migrations directory).
package pgstore

import (
	"database/sql"
	"embed"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the slots schema up to date.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "loading migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return errors.Wrap(err, "initializing migrate")
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying migrations")
	}
	return nil
}

type backend struct {
	*storage.Notifier

	db *sqlx.DB

	mu     sync.Mutex
	closed bool
}

var _ storage.Backend = (*backend)(nil)

func New(databaseURL string) (storage.Backend, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	return &backend{
		Notifier: storage.NewNotifier(),
		db:       db,
	}, nil
}

func (b *backend) Get(key string) ([]byte, bool, error) {
	if b.isClosed() {
		return nil, false, storage.ErrClosed
	}
	var value []byte
	err := b.db.Get(&value, `SELECT value FROM slots WHERE name = $1`, key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "reading slot")
	}
	return value, true, nil
}

func (b *backend) Set(key string, value []byte) error {
	if b.isClosed() {
		return storage.ErrClosed
	}
	_, err := b.db.Exec(
		`INSERT INTO slots (name, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return errors.Wrap(err, "writing slot")
	}
	b.Notify(key)
	return nil
}

func (b *backend) Remove(key string) error {
	if b.isClosed() {
		return storage.ErrClosed
	}
	if _, err := b.db.Exec(`DELETE FROM slots WHERE name = $1`, key); err != nil {
		return errors.Wrap(err, "removing slot")
	}
	b.Notify(key)
	return nil
}

func (b *backend) Keys() ([]string, error) {
	if b.isClosed() {
		return nil, storage.ErrClosed
	}
	var keys []string
	if err := b.db.Select(&keys, `SELECT name FROM slots ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "listing slots")
	}
	return keys, nil
}

func (b *backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.CloseNotifier()
	return b.db.Close()
}

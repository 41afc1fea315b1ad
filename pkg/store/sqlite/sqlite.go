// Package sqlite implements store.Store on SQLite with embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-propform/pkg/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

// Config holds the database location and clock.
type Config struct {
	DSN    string
	Logger zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the SQLite store.Store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects, enables foreign keys and runs pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection keeps the foreign_keys pragma in effect and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: exec %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: cfg.Logger, now: cfg.Now}
	if s.now == nil {
		s.now = time.Now
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: run migrations: %w", err)
	}
	version, _, _ := m.Version()
	s.logger.Debug().Uint("version", version).Msg("migrations applied")
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateCategory(ctx context.Context, category *store.Category) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, owner) VALUES (?, ?)`, category.Name, category.Owner)
	if err != nil {
		return fmt.Errorf("sqlite: create category: %w", err)
	}
	if category.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: create category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, owner string, id int64) (store.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner FROM categories WHERE id = ? AND owner = ?`, id, owner)
	return scanCategory(row)
}

func (s *Store) FindCategoryByName(ctx context.Context, owner, name string) (store.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner FROM categories WHERE owner = ? AND name = ?`, owner, name)
	return scanCategory(row)
}

func (s *Store) ListCategories(ctx context.Context, owner string) ([]store.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner FROM categories WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	defer rows.Close()

	var out []store.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCategory(ctx context.Context, owner string, id int64) error {
	return s.delete(ctx, `DELETE FROM categories WHERE id = ? AND owner = ?`, owner, id)
}

func (s *Store) CreateConfiguration(ctx context.Context, file *store.ConfigurationFile) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO configuration_files (name, subcategory, content, owner, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.Name, file.Subcategory, file.Content, file.Owner, file.CategoryID,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: create configuration: %w", err)
	}
	if file.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: create configuration: %w", err)
	}
	file.CreatedAt, file.UpdatedAt = now, now
	return nil
}

func (s *Store) UpdateConfiguration(ctx context.Context, file *store.ConfigurationFile) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE configuration_files
		 SET name = ?, subcategory = ?, content = ?, category_id = ?, updated_at = ?
		 WHERE id = ? AND owner = ?`,
		file.Name, file.Subcategory, file.Content, file.CategoryID, now.Format(timeLayout),
		file.ID, file.Owner)
	if err != nil {
		return fmt.Errorf("sqlite: update configuration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	file.UpdatedAt = now
	return nil
}

const selectConfiguration = `SELECT f.id, f.name, f.subcategory, f.content, f.owner, f.category_id, c.name, f.created_at, f.updated_at
	FROM configuration_files f JOIN categories c ON c.id = f.category_id`

func (s *Store) GetConfiguration(ctx context.Context, owner string, id int64) (store.ConfigurationFile, error) {
	row := s.db.QueryRowContext(ctx, selectConfiguration+` WHERE f.id = ? AND f.owner = ?`, id, owner)
	return scanConfiguration(row)
}

func (s *Store) ListConfigurations(ctx context.Context, owner string) ([]store.ConfigurationFile, error) {
	return s.listConfigurations(ctx, selectConfiguration+` WHERE f.owner = ? ORDER BY f.id`, owner)
}

func (s *Store) ListConfigurationsByCategory(ctx context.Context, categoryID int64) ([]store.ConfigurationFile, error) {
	return s.listConfigurations(ctx, selectConfiguration+` WHERE f.category_id = ? ORDER BY f.id`, categoryID)
}

func (s *Store) DeleteConfiguration(ctx context.Context, owner string, id int64) error {
	return s.delete(ctx, `DELETE FROM configuration_files WHERE id = ? AND owner = ?`, owner, id)
}

func (s *Store) listConfigurations(ctx context.Context, query string, arg any) ([]store.ConfigurationFile, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list configurations: %w", err)
	}
	defer rows.Close()

	var out []store.ConfigurationFile
	for rows.Next() {
		file, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, file)
	}
	return out, rows.Err()
}

func (s *Store) delete(ctx context.Context, query, owner string, id int64) error {
	res, err := s.db.ExecContext(ctx, query, id, owner)
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (store.Category, error) {
	var c store.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Category{}, store.ErrNotFound
		}
		return store.Category{}, fmt.Errorf("sqlite: scan category: %w", err)
	}
	return c, nil
}

func scanConfiguration(row scanner) (store.ConfigurationFile, error) {
	var (
		f                store.ConfigurationFile
		created, updated string
	)
	err := row.Scan(&f.ID, &f.Name, &f.Subcategory, &f.Content, &f.Owner, &f.CategoryID, &f.CategoryName, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ConfigurationFile{}, store.ErrNotFound
		}
		return store.ConfigurationFile{}, fmt.Errorf("sqlite: scan configuration: %w", err)
	}
	if f.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return store.ConfigurationFile{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return store.ConfigurationFile{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return f, nil
}

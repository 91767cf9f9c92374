package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements DocumentStore using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Every connection to :memory: is a separate database.
	if strings.HasPrefix(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, collection string, doc *Document) error {
	return createDocument(ctx, s.db, collection, doc)
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(ctx, s.db, collection, id)
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	return updateDocumentFields(ctx, s.db, collection, id, fields)
}

func (s *SQLiteStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	return listDocuments(ctx, s.db, collection, opts)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(DocumentStore) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements DocumentStore within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) Create(ctx context.Context, collection string, doc *Document) error {
	return createDocument(ctx, s.tx, collection, doc)
}

func (s *txSQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(ctx, s.tx, collection, id)
}

func (s *txSQLiteStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	return updateDocumentFields(ctx, s.tx, collection, id, fields)
}

func (s *txSQLiteStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	return listDocuments(ctx, s.tx, collection, opts)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(DocumentStore) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

// documentRow represents a document row in the database.
type documentRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Data       string `db:"data"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func createDocument(ctx context.Context, exec executor, collection string, doc *Document) error {
	if doc.ID == "" {
		return NewStoreError("Create", collection, "", "document id is required", ErrInvalidData)
	}

	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return NewStoreError("Create", collection, doc.ID, "failed to serialize data", ErrInvalidData)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (:collection, :id, :data, :created_at, :updated_at)`

	_, err = exec.NamedExecContext(ctx, query, map[string]any{
		"collection": collection,
		"id":         doc.ID,
		"data":       string(dataJSON),
		"created_at": doc.CreatedAt.UTC().Format(timeLayout),
		"updated_at": doc.UpdatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("Create", collection, doc.ID, "document already exists", ErrDuplicateID)
		}
		return NewStoreError("Create", collection, doc.ID, err.Error(), err)
	}

	return nil
}

func getDocument(ctx context.Context, exec executor, collection, id string) (*Document, error) {
	query := `SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`

	var row documentRow
	err := exec.GetContext(ctx, &row, query, collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("Get", collection, id, "document not found", ErrNotFound)
		}
		return nil, NewStoreError("Get", collection, id, err.Error(), err)
	}

	return rowToDocument(&row)
}

func updateDocumentFields(ctx context.Context, exec executor, collection, id string, fields map[string]any) error {
	if len(fields) == 0 {
		// Nothing to merge, but the document must still exist.
		_, err := getDocument(ctx, exec, collection, id)
		return err
	}

	patchJSON, err := json.Marshal(fields)
	if err != nil {
		return NewStoreError("UpdateFields", collection, id, "failed to serialize fields", ErrInvalidData)
	}

	query := `
		UPDATE documents SET
			data = json_patch(data, :patch),
			updated_at = :updated_at
		WHERE collection = :collection AND id = :id`

	result, err := exec.NamedExecContext(ctx, query, map[string]any{
		"collection": collection,
		"id":         id,
		"patch":      string(patchJSON),
		"updated_at": time.Now().UTC().Format(timeLayout),
	})
	if err != nil {
		return NewStoreError("UpdateFields", collection, id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateFields", collection, id, "document not found", ErrNotFound)
	}

	return nil
}

func listDocuments(ctx context.Context, exec executor, collection string, opts ListOptions) ([]Document, error) {
	opts = opts.Normalize()

	query := `
		SELECT collection, id, data, created_at, updated_at FROM documents
		WHERE collection = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`

	var rows []documentRow
	if err := exec.SelectContext(ctx, &rows, query, collection, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("List", collection, "", err.Error(), err)
	}

	docs := make([]Document, 0, len(rows))
	for i := range rows {
		doc, err := rowToDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func rowToDocument(row *documentRow) (*Document, error) {
	createdAt, _ := time.Parse(timeLayout, row.CreatedAt)
	updatedAt, _ := time.Parse(timeLayout, row.UpdatedAt)

	data := map[string]any{}
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			return nil, NewStoreError("rowToDocument", row.Collection, row.ID, "failed to parse data", ErrInvalidData)
		}
	}

	return &Document{
		ID:        row.ID,
		Data:      data,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

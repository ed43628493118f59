package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/packgrid/internal/app"
	"github.com/hylla/packgrid/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tables (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			columns_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS table_rows (
			table_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			cells_json TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY(table_id, position),
			FOREIGN KEY(table_id) REFERENCES tables(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS table_states (
			table_id TEXT PRIMARY KEY,
			frozen_json TEXT NOT NULL DEFAULT '[]',
			rules_json TEXT NOT NULL DEFAULT '[]',
			sort_column INTEGER NOT NULL DEFAULT -1,
			sort_order TEXT NOT NULL DEFAULT 'asc',
			updated_at TEXT NOT NULL,
			FOREIGN KEY(table_id) REFERENCES tables(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tables_name ON tables(name);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// execerContext represents the exec surface shared by *sql.DB and *sql.Tx.
type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateTable creates table.
func (r *Repository) CreateTable(ctx context.Context, t domain.Table) error {
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encode table columns: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tables(id, name, columns_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Name, string(columnsJSON), ts(t.CreatedAt), ts(t.UpdatedAt)); err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("table %q: %w", t.Name, app.ErrAlreadyExists)
		}
		return err
	}
	if err := insertRows(ctx, tx, t.ID, t.Rows); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateTable replaces table metadata and rows.
func (r *Repository) UpdateTable(ctx context.Context, t domain.Table) error {
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encode table columns: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE tables
		SET name = ?, columns_json = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, string(columnsJSON), ts(t.UpdatedAt), t.ID)
	if err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("table %q: %w", t.Name, app.ErrAlreadyExists)
		}
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM table_rows WHERE table_id = ?`, t.ID); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, t.ID, t.Rows); err != nil {
		return err
	}
	return tx.Commit()
}

// insertRows writes one JSON-encoded row per position.
func insertRows(ctx context.Context, execer execerContext, tableID string, rows [][]domain.Cell) error {
	for pos, row := range rows {
		cellsJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", pos, err)
		}
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO table_rows(table_id, position, cells_json)
			VALUES (?, ?, ?)
		`, tableID, pos, string(cellsJSON)); err != nil {
			return fmt.Errorf("insert row %d: %w", pos, err)
		}
	}
	return nil
}

// GetTable returns table.
func (r *Repository) GetTable(ctx context.Context, id string) (domain.Table, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, columns_json, created_at, updated_at
		FROM tables
		WHERE id = ?
	`, id)
	return r.loadTable(ctx, row)
}

// GetTableByName returns the table with name.
func (r *Repository) GetTableByName(ctx context.Context, name string) (domain.Table, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, columns_json, created_at, updated_at
		FROM tables
		WHERE name = ?
	`, strings.TrimSpace(name))
	return r.loadTable(ctx, row)
}

// ListTables lists tables.
func (r *Repository) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, columns_json, created_at, updated_at
		FROM tables
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range out {
		cells, err := r.listRows(ctx, out[idx].ID)
		if err != nil {
			return nil, err
		}
		out[idx].Rows = cells
	}
	return out, nil
}

// DeleteTable removes a table with its rows and state.
func (r *Repository) DeleteTable(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM table_rows WHERE table_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM table_states WHERE table_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTableState returns the stored editor state.
func (r *Repository) GetTableState(ctx context.Context, tableID string) (domain.TableState, error) {
	var (
		st         domain.TableState
		frozenRaw  string
		rulesRaw   string
		orderRaw   string
		updatedRaw string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT table_id, frozen_json, rules_json, sort_column, sort_order, updated_at
		FROM table_states
		WHERE table_id = ?
	`, tableID).Scan(&st.TableID, &frozenRaw, &rulesRaw, &st.SortColumn, &orderRaw, &updatedRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TableState{}, app.ErrNotFound
		}
		return domain.TableState{}, err
	}
	if err := json.Unmarshal([]byte(defaultJSON(frozenRaw, "[]")), &st.FrozenColumns); err != nil {
		return domain.TableState{}, fmt.Errorf("decode frozen columns: %w", err)
	}
	if err := json.Unmarshal([]byte(defaultJSON(rulesRaw, "[]")), &st.Rules); err != nil {
		return domain.TableState{}, fmt.Errorf("decode filter rules: %w", err)
	}
	order, err := domain.ParseSortOrder(orderRaw)
	if err != nil {
		return domain.TableState{}, fmt.Errorf("decode sort order: %w", err)
	}
	st.SortOrder = order
	st.UpdatedAt = parseTS(updatedRaw)
	return st, nil
}

// SaveTableState upserts editor state.
func (r *Repository) SaveTableState(ctx context.Context, st domain.TableState) error {
	frozen := st.FrozenColumns
	if frozen == nil {
		frozen = []int{}
	}
	frozenJSON, err := json.Marshal(frozen)
	if err != nil {
		return fmt.Errorf("encode frozen columns: %w", err)
	}
	rules := st.Rules
	if rules == nil {
		rules = domain.FilterConfiguration{}
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("encode filter rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO table_states(table_id, frozen_json, rules_json, sort_column, sort_order, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_id) DO UPDATE SET
			frozen_json = excluded.frozen_json,
			rules_json = excluded.rules_json,
			sort_column = excluded.sort_column,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
	`, st.TableID, string(frozenJSON), string(rulesJSON), st.SortColumn, st.SortOrder.String(), ts(st.UpdatedAt))
	return err
}

// loadTable scans table metadata and loads its rows.
func (r *Repository) loadTable(ctx context.Context, row scanner) (domain.Table, error) {
	t, err := scanTable(row)
	if err != nil {
		return domain.Table{}, err
	}
	t.Rows, err = r.listRows(ctx, t.ID)
	if err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

// listRows loads every row of a table in position order.
func (r *Repository) listRows(ctx context.Context, tableID string) ([][]domain.Cell, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cells_json
		FROM table_rows
		WHERE table_id = ?
		ORDER BY position ASC
	`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]domain.Cell, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells []domain.Cell
		if err := json.Unmarshal([]byte(defaultJSON(raw, "[]")), &cells); err != nil {
			return nil, fmt.Errorf("decode row cells: %w", err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanTable handles scan table.
func scanTable(s scanner) (domain.Table, error) {
	var (
		t          domain.Table
		columnsRaw string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&t.ID, &t.Name, &columnsRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Table{}, app.ErrNotFound
		}
		return domain.Table{}, err
	}
	if err := json.Unmarshal([]byte(defaultJSON(columnsRaw, "[]")), &t.Columns); err != nil {
		return domain.Table{}, fmt.Errorf("decode table columns: %w", err)
	}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// defaultJSON substitutes fallback for blank stored JSON.
func defaultJSON(raw, fallback string) string {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	return raw
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// isUniqueErr reports whether err is a uniqueness constraint violation.
func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

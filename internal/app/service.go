package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/packgrid/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	LookupSuffix string
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service coordinates table storage, cell edits and persisted editor state.
type Service struct {
	repo         Repository
	idGen        IDGenerator
	clock        Clock
	lookupSuffix string
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if strings.TrimSpace(cfg.LookupSuffix) == "" {
		cfg.LookupSuffix = defaultLookupSuffix
	}
	return &Service{
		repo:         repo,
		idGen:        idGen,
		clock:        clock,
		lookupSuffix: cfg.LookupSuffix,
	}
}

// ImportTableInput holds input values for import table operations.
type ImportTableInput struct {
	Name       string
	Source     io.Reader
	Format     Format
	KeyColumns []string
	Replace    bool
}

// ImportTable decodes a delimited export and stores it. An existing table with the same name is
// replaced only when Replace is set; its id and editor state are kept.
func (s *Service) ImportTable(ctx context.Context, in ImportTableInput) (domain.Table, error) {
	if in.Source == nil {
		return domain.Table{}, fmt.Errorf("%w: missing source", ErrInvalidInput)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Table{}, fmt.Errorf("%w: %w", ErrInvalidInput, domain.ErrInvalidName)
	}
	if in.Format == "" {
		in.Format = FormatTSV
	}
	parsed, err := parseDelimited(in.Source, in.Format, s.lookupSuffix)
	if err != nil {
		return domain.Table{}, err
	}
	for _, keyName := range in.KeyColumns {
		idx := slices.IndexFunc(parsed.Columns, func(c domain.ColumnDef) bool {
			return strings.EqualFold(c.Name, strings.TrimSpace(keyName))
		})
		if idx < 0 {
			return domain.Table{}, fmt.Errorf("%w: key column %q not in header", ErrInvalidInput, keyName)
		}
		parsed.Columns[idx].Key = true
	}

	existing, err := s.repo.GetTableByName(ctx, in.Name)
	switch {
	case err == nil && !in.Replace:
		return domain.Table{}, fmt.Errorf("table %q: %w", in.Name, ErrAlreadyExists)
	case err != nil && !errors.Is(err, ErrNotFound):
		return domain.Table{}, err
	}

	id := s.idGen()
	if err == nil {
		id = existing.ID
	}
	table, err := domain.NewTable(domain.TableInput{
		ID:      id,
		Name:    in.Name,
		Columns: parsed.Columns,
		Rows:    parsed.Rows,
	}, s.clock())
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if existing.ID != "" {
		table.CreatedAt = existing.CreatedAt
		if err := s.repo.UpdateTable(ctx, table); err != nil {
			return domain.Table{}, err
		}
		if existing.ColumnCount() != table.ColumnCount() {
			if err := s.repo.SaveTableState(ctx, domain.NewTableState(table.ID)); err != nil {
				return domain.Table{}, err
			}
		}
		return table, nil
	}
	if err := s.repo.CreateTable(ctx, table); err != nil {
		return domain.Table{}, err
	}
	return table, nil
}

// ListTables lists tables ordered by name.
func (s *Service) ListTables(ctx context.Context) ([]domain.Table, error) {
	tables, err := s.repo.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tables, func(a, b domain.Table) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tables, nil
}

// GetTable resolves ref as a table id first and a table name second.
func (s *Service) GetTable(ctx context.Context, ref string) (domain.Table, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Table{}, fmt.Errorf("%w: empty table reference", ErrInvalidInput)
	}
	table, err := s.repo.GetTable(ctx, ref)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Table{}, err
	}
	return s.repo.GetTableByName(ctx, ref)
}

// DeleteTable removes a table and its editor state.
func (s *Service) DeleteTable(ctx context.Context, ref string) error {
	table, err := s.GetTable(ctx, ref)
	if err != nil {
		return err
	}
	return s.repo.DeleteTable(ctx, table.ID)
}

// SetCellInput holds input values for cell edits. ColumnRef, a column name or index as typed by a
// user, overrides Column when set.
type SetCellInput struct {
	Table     string
	Row       int
	Column    int
	ColumnRef string
	Value     string
}

// resolveColumn returns the column an edit targets.
func (in SetCellInput) resolveColumn(table domain.Table) (int, error) {
	if strings.TrimSpace(in.ColumnRef) != "" {
		return ResolveColumn(table, in.ColumnRef)
	}
	if in.Column < 0 || in.Column >= table.ColumnCount() {
		return -1, fmt.Errorf("%w: column %d out of range", ErrInvalidInput, in.Column)
	}
	return in.Column, nil
}

// SetCellValue edits one cell and stores the table.
func (s *Service) SetCellValue(ctx context.Context, in SetCellInput) (domain.Table, error) {
	table, err := s.GetTable(ctx, in.Table)
	if err != nil {
		return domain.Table{}, err
	}
	col, err := in.resolveColumn(table)
	if err != nil {
		return domain.Table{}, err
	}
	if err := table.SetValue(in.Row, col, in.Value, s.clock()); err != nil {
		return domain.Table{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.repo.UpdateTable(ctx, table); err != nil {
		return domain.Table{}, err
	}
	return table, nil
}

// AppendRow adds a row flagged as added and stores the table.
func (s *Service) AppendRow(ctx context.Context, ref string, values []string) (domain.Table, error) {
	table, err := s.GetTable(ctx, ref)
	if err != nil {
		return domain.Table{}, err
	}
	if err := table.AppendRow(values, s.clock()); err != nil {
		return domain.Table{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.repo.UpdateTable(ctx, table); err != nil {
		return domain.Table{}, err
	}
	return table, nil
}

// GetTableState returns the stored editor state, or an empty state when none was saved.
func (s *Service) GetTableState(ctx context.Context, tableID string) (domain.TableState, error) {
	state, err := s.repo.GetTableState(ctx, tableID)
	if errors.Is(err, ErrNotFound) {
		return domain.NewTableState(tableID), nil
	}
	if err != nil {
		return domain.TableState{}, err
	}
	return state, nil
}

// SaveTableState validates and stores editor state for an existing table.
func (s *Service) SaveTableState(ctx context.Context, state domain.TableState) error {
	table, err := s.repo.GetTable(ctx, state.TableID)
	if err != nil {
		return err
	}
	for _, col := range state.FrozenColumns {
		if col < 0 || col >= table.ColumnCount() {
			return fmt.Errorf("%w: frozen column %d out of range", ErrInvalidInput, col)
		}
	}
	if state.SortColumn >= table.ColumnCount() {
		return fmt.Errorf("%w: sort column %d out of range", ErrInvalidInput, state.SortColumn)
	}
	if state.SortColumn < 0 {
		state.SortColumn = -1
	}
	state.FrozenColumns = domain.NewFrozenSet(state.FrozenColumns...).Columns()
	state.Rules = state.Rules.Clone()
	state.UpdatedAt = s.clock().UTC()
	return s.repo.SaveTableState(ctx, state)
}

// ExportTable writes the given source rows of a table in format. Nil rows exports every row.
func (s *Service) ExportTable(ctx context.Context, ref string, w io.Writer, format Format, rows []int) error {
	table, err := s.GetTable(ctx, ref)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = make([]int, table.RowCount())
		for idx := range rows {
			rows[idx] = idx
		}
	}
	return writeDelimited(w, format, table, rows, s.lookupSuffix)
}

// ResolveColumn accepts a column name or a zero-based index.
func ResolveColumn(table domain.Table, raw string) (int, error) {
	if idx, ok := table.ColumnIndex(raw); ok {
		return idx, nil
	}
	if idx, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && idx >= 0 && idx < table.ColumnCount() {
		return idx, nil
	}
	return -1, fmt.Errorf("%w: unknown column %q", ErrInvalidInput, raw)
}


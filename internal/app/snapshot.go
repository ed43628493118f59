package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/packgrid/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "packgrid.snapshot.v1"

// Snapshot is a portable JSON export of every table and its editor state.
type Snapshot struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Tables     []SnapshotTable `json:"tables"`
}

// SnapshotTable represents snapshot table data used by this package.
type SnapshotTable struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Columns   []domain.ColumnDef `json:"columns"`
	Rows      [][]domain.Cell    `json:"rows"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	State     *SnapshotState     `json:"state,omitempty"`
}

// SnapshotState represents snapshot editor-state data used by this package.
type SnapshotState struct {
	FrozenColumns []int                      `json:"frozen_columns,omitempty"`
	Rules         domain.FilterConfiguration `json:"rules,omitempty"`
	SortColumn    int                        `json:"sort_column"`
	SortOrder     string                     `json:"sort_order"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// ExportSnapshot collects every table with its stored editor state.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	tables, err := s.repo.ListTables(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Tables:     make([]SnapshotTable, 0, len(tables)),
	}
	for _, table := range tables {
		st := snapshotTableFromDomain(table)
		state, err := s.repo.GetTableState(ctx, table.ID)
		switch {
		case err == nil:
			st.State = snapshotStateFromDomain(state)
		case !errors.Is(err, ErrNotFound):
			return Snapshot{}, err
		}
		snap.Tables = append(snap.Tables, st)
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot validates snap and upserts its tables and states.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	for _, st := range snap.Tables {
		table, err := st.toDomain()
		if err != nil {
			return err
		}
		if _, err := s.repo.GetTable(ctx, table.ID); err == nil {
			if err := s.repo.UpdateTable(ctx, table); err != nil {
				return err
			}
		} else if errors.Is(err, ErrNotFound) {
			if err := s.repo.CreateTable(ctx, table); err != nil {
				return err
			}
		} else {
			return err
		}
		if st.State == nil {
			continue
		}
		state, err := st.State.toDomain(table.ID)
		if err != nil {
			return err
		}
		if err := s.repo.SaveTableState(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks version and structural consistency.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %q", ErrInvalidInput, s.Version)
	}
	ids := map[string]struct{}{}
	names := map[string]struct{}{}
	for idx, table := range s.Tables {
		id := strings.TrimSpace(table.ID)
		name := strings.TrimSpace(table.Name)
		if id == "" || name == "" {
			return fmt.Errorf("%w: tables[%d] requires id and name", ErrInvalidInput, idx)
		}
		if _, ok := ids[id]; ok {
			return fmt.Errorf("%w: duplicate table id %q", ErrInvalidInput, id)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("%w: duplicate table name %q", ErrInvalidInput, name)
		}
		ids[id] = struct{}{}
		names[name] = struct{}{}
		if table.State == nil {
			continue
		}
		for _, col := range table.State.FrozenColumns {
			if col < 0 || col >= len(table.Columns) {
				return fmt.Errorf("%w: tables[%d] frozen column %d out of range", ErrInvalidInput, idx, col)
			}
		}
	}
	return nil
}

// sort orders tables by name for deterministic output.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Tables, func(i, j int) bool {
		return s.Tables[i].Name < s.Tables[j].Name
	})
}

// snapshotTableFromDomain converts a table into its snapshot form.
func snapshotTableFromDomain(t domain.Table) SnapshotTable {
	return SnapshotTable{
		ID:        t.ID,
		Name:      t.Name,
		Columns:   append([]domain.ColumnDef(nil), t.Columns...),
		Rows:      t.Rows,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// snapshotStateFromDomain converts editor state into its snapshot form.
func snapshotStateFromDomain(st domain.TableState) *SnapshotState {
	return &SnapshotState{
		FrozenColumns: st.FrozenColumns,
		Rules:         st.Rules.Clone(),
		SortColumn:    st.SortColumn,
		SortOrder:     st.SortOrder.String(),
		UpdatedAt:     st.UpdatedAt,
	}
}

// toDomain rebuilds a validated table, keeping stored timestamps.
func (t SnapshotTable) toDomain() (domain.Table, error) {
	table, err := domain.NewTable(domain.TableInput{
		ID:      t.ID,
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    t.Rows,
	}, t.CreatedAt)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: table %q: %w", ErrInvalidInput, t.Name, err)
	}
	table.UpdatedAt = t.UpdatedAt.UTC()
	return table, nil
}

// toDomain converts snapshot state for tableID.
func (s SnapshotState) toDomain(tableID string) (domain.TableState, error) {
	order, err := domain.ParseSortOrder(s.SortOrder)
	if err != nil {
		return domain.TableState{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return domain.TableState{
		TableID:       tableID,
		FrozenColumns: domain.NewFrozenSet(s.FrozenColumns...).Columns(),
		Rules:         s.Rules.Clone(),
		SortColumn:    s.SortColumn,
		SortOrder:     order,
		UpdatedAt:     s.UpdatedAt.UTC(),
	}, nil
}

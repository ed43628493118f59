package app

import (
	"context"

	"github.com/hylla/packgrid/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateTable(context.Context, domain.Table) error
	UpdateTable(context.Context, domain.Table) error
	GetTable(context.Context, string) (domain.Table, error)
	GetTableByName(context.Context, string) (domain.Table, error)
	ListTables(context.Context) ([]domain.Table, error)
	DeleteTable(context.Context, string) error

	GetTableState(context.Context, string) (domain.TableState, error)
	SaveTableState(context.Context, domain.TableState) error
}

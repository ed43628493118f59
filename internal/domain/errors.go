package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidColumn     = errors.New("invalid column")
	ErrInvalidRow        = errors.New("invalid row")
	ErrInvalidSortOrder  = errors.New("invalid sort order")
	ErrInvalidTextSource = errors.New("invalid text source")
	ErrDuplicateColumn   = errors.New("duplicate column name")
)

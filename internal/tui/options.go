package tui

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/packgrid/internal/domain"
)

// KeyConfig holds configurable key overrides.
type KeyConfig struct {
	Freeze       string
	UnfreezeAll  string
	Filter       string
	Sort         string
	AddFilter    string
	RemoveFilter string
}

// FilterDefaults seeds new filter rows and the typing debounce.
type FilterDefaults struct {
	Debounce      time.Duration
	UseRegex      bool
	CaseSensitive bool
	TextSource    domain.TextSource
}

// TableLayout holds grid sizing values.
type TableLayout struct {
	DefaultColumnWidth int
	MinColumnWidth     int
	MaxColumnWidth     int
	RowHeaderWidth     int
}

// ColorConfig holds cell highlight colors.
type ColorConfig struct {
	Key      string
	Added    string
	Modified string
	Accent   string
	Muted    string
}

// RuntimeConfig holds every setting the model reads from the config file.
type RuntimeConfig struct {
	Filter FilterDefaults
	Table  TableLayout
	Colors ColorConfig
	Keys   KeyConfig
}

// DefaultRuntimeConfig returns settings matching the built-in config defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Filter: FilterDefaults{
			Debounce:   500 * time.Millisecond,
			TextSource: domain.TextSourcePrimary,
		},
		Table: TableLayout{
			DefaultColumnWidth: 14,
			MinColumnWidth:     3,
			MaxColumnWidth:     60,
			RowHeaderWidth:     5,
		},
		Colors: ColorConfig{
			Key:      "#8FBCBB",
			Added:    "#A3BE8C",
			Modified: "#EBCB8B",
			Accent:   "62",
			Muted:    "241",
		},
	}
}

// Option configures a Model.
type Option func(*Model)

// WithRuntimeConfig applies config-file settings.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(m *Model) {
		m.cfg = normalizeRuntimeConfig(cfg)
	}
}

// WithLogger routes model, filter and pane logs to logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the clipboard writer used by the copy key.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// normalizeRuntimeConfig fills zero layout values from defaults.
func normalizeRuntimeConfig(cfg RuntimeConfig) RuntimeConfig {
	def := DefaultRuntimeConfig()
	if cfg.Filter.Debounce < 0 {
		cfg.Filter.Debounce = 0
	}
	if cfg.Filter.TextSource == "" {
		cfg.Filter.TextSource = domain.TextSourcePrimary
	}
	if cfg.Table.MinColumnWidth <= 0 {
		cfg.Table.MinColumnWidth = def.Table.MinColumnWidth
	}
	if cfg.Table.MaxColumnWidth < cfg.Table.MinColumnWidth {
		cfg.Table.MaxColumnWidth = max(def.Table.MaxColumnWidth, cfg.Table.MinColumnWidth)
	}
	if cfg.Table.DefaultColumnWidth <= 0 {
		cfg.Table.DefaultColumnWidth = def.Table.DefaultColumnWidth
	}
	cfg.Table.DefaultColumnWidth = clamp(cfg.Table.DefaultColumnWidth, cfg.Table.MinColumnWidth, cfg.Table.MaxColumnWidth)
	if cfg.Table.RowHeaderWidth <= 0 {
		cfg.Table.RowHeaderWidth = def.Table.RowHeaderWidth
	}
	if cfg.Colors.Key == "" {
		cfg.Colors.Key = def.Colors.Key
	}
	if cfg.Colors.Added == "" {
		cfg.Colors.Added = def.Colors.Added
	}
	if cfg.Colors.Modified == "" {
		cfg.Colors.Modified = def.Colors.Modified
	}
	if cfg.Colors.Accent == "" {
		cfg.Colors.Accent = def.Colors.Accent
	}
	if cfg.Colors.Muted == "" {
		cfg.Colors.Muted = def.Colors.Muted
	}
	return cfg
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

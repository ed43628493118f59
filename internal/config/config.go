package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every user-tunable packgrid setting.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Import   ImportConfig   `toml:"import"`
	Filter   FilterConfig   `toml:"filter"`
	Table    TableConfig    `toml:"table"`
	Colors   ColorConfig    `toml:"colors"`
	Keys     KeyConfig      `toml:"keys"`
}

// DatabaseConfig holds configuration for database.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig holds configuration for the dev-mode log file sink.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// ImportConfig holds delimited import settings.
type ImportConfig struct {
	LookupSuffix  string `toml:"lookup_suffix"`
	DefaultFormat string `toml:"default_format"`
}

// FilterConfig holds defaults for new filter rows.
type FilterConfig struct {
	DebounceMS           int    `toml:"debounce_ms"`
	DefaultUseRegex      bool   `toml:"default_use_regex"`
	DefaultCaseSensitive bool   `toml:"default_case_sensitive"`
	DefaultTextSource    string `toml:"default_text_source"`
}

// TableConfig holds grid sizing values.
type TableConfig struct {
	DefaultColumnWidth int `toml:"default_column_width"`
	MinColumnWidth     int `toml:"min_column_width"`
	MaxColumnWidth     int `toml:"max_column_width"`
	RowHeaderWidth     int `toml:"row_header_width"`
}

// ColorConfig holds cell highlight colors as hex or ANSI codes.
type ColorConfig struct {
	Key      string `toml:"key"`
	Added    string `toml:"added"`
	Modified string `toml:"modified"`
	Accent   string `toml:"accent"`
	Muted    string `toml:"muted"`
}

// KeyConfig holds key overrides.
type KeyConfig struct {
	Freeze       string `toml:"freeze"`
	UnfreezeAll  string `toml:"unfreeze_all"`
	Filter       string `toml:"filter"`
	Sort         string `toml:"sort"`
	AddFilter    string `toml:"add_filter"`
	RemoveFilter string `toml:"remove_filter"`
}

// colorPattern accepts #rgb, #rrggbb or an ANSI 256 index.
var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[0-9]{1,3})$`)

// Default returns the built-in configuration.
func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".packgrid/log",
			},
		},
		Import: ImportConfig{
			LookupSuffix:  "#lookup",
			DefaultFormat: "tsv",
		},
		Filter: FilterConfig{
			DebounceMS:        500,
			DefaultTextSource: "primary",
		},
		Table: TableConfig{
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
		Keys: KeyConfig{
			Freeze:       "f",
			UnfreezeAll:  "F",
			Filter:       "/",
			Sort:         "s",
			AddFilter:    "+",
			RemoveFilter: "-",
		},
	}
}

// Load reads a TOML file over defaults. A missing or empty file yields the defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	if strings.TrimSpace(c.Import.LookupSuffix) == "" {
		return errors.New("import.lookup_suffix is required")
	}
	switch strings.TrimSpace(strings.ToLower(c.Import.DefaultFormat)) {
	case "", "tsv", "tab", "csv":
	default:
		return fmt.Errorf("invalid import.default_format: %q", c.Import.DefaultFormat)
	}

	if c.Filter.DebounceMS < 0 || c.Filter.DebounceMS > 10_000 {
		return fmt.Errorf("filter.debounce_ms must be between 0 and 10000, got %d", c.Filter.DebounceMS)
	}
	switch strings.TrimSpace(strings.ToLower(c.Filter.DefaultTextSource)) {
	case "", "primary", "secondary", "both":
	default:
		return fmt.Errorf("invalid filter.default_text_source: %q", c.Filter.DefaultTextSource)
	}

	if c.Table.MinColumnWidth < 1 {
		return fmt.Errorf("table.min_column_width must be >= 1, got %d", c.Table.MinColumnWidth)
	}
	if c.Table.MaxColumnWidth < c.Table.MinColumnWidth {
		return fmt.Errorf("table.max_column_width %d is below min_column_width %d", c.Table.MaxColumnWidth, c.Table.MinColumnWidth)
	}
	if c.Table.DefaultColumnWidth < c.Table.MinColumnWidth || c.Table.DefaultColumnWidth > c.Table.MaxColumnWidth {
		return fmt.Errorf("table.default_column_width %d outside [%d, %d]", c.Table.DefaultColumnWidth, c.Table.MinColumnWidth, c.Table.MaxColumnWidth)
	}
	if c.Table.RowHeaderWidth < 1 {
		return fmt.Errorf("table.row_header_width must be >= 1, got %d", c.Table.RowHeaderWidth)
	}

	for name, value := range map[string]string{
		"key":      c.Colors.Key,
		"added":    c.Colors.Added,
		"modified": c.Colors.Modified,
		"accent":   c.Colors.Accent,
		"muted":    c.Colors.Muted,
	} {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !colorPattern.MatchString(value) {
			return fmt.Errorf("invalid colors.%s: %q", name, value)
		}
	}

	seen := map[string]string{}
	for name, value := range map[string]string{
		"freeze":        c.Keys.Freeze,
		"unfreeze_all":  c.Keys.UnfreezeAll,
		"filter":        c.Keys.Filter,
		"sort":          c.Keys.Sort,
		"add_filter":    c.Keys.AddFilter,
		"remove_filter": c.Keys.RemoveFilter,
	} {
		if value == "" {
			continue
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("keys.%s and keys.%s both bind %q", name, other, value)
		}
		seen[value] = name
	}

	return nil
}

// EnsureConfigDir creates the parent directory of path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

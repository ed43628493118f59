package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hylla/packgrid/internal/app"
	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/filter"
	"github.com/spf13/cobra"
)

// newPathsCommand prints the resolved runtime paths without opening the database.
func newPathsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved config, data and database paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, configPath, dbPath, _, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", dbPath)
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// newImportCommand stores a TSV or CSV export as a table.
func newImportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		name    string
		format  string
		keys    []string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a delimited export as a table",
		Long: `Import reads a header row followed by data rows. Header cells read "name" or
"name:kind" (text, integer, float, boolean); a "name#lookup" header carries the
lookup text shown next to column "name". Lines starting with '#' are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, stderr, "import", func(s *session) error {
				path := args[0]
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer func() { _ = f.Close() }()

				importFormat, err := resolveImportFormat(format, path, s.cfg.Import.DefaultFormat)
				if err != nil {
					return err
				}
				tableName := strings.TrimSpace(name)
				if tableName == "" {
					tableName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				table, err := s.svc.ImportTable(cmd.Context(), app.ImportTableInput{
					Name:       tableName,
					Source:     f,
					Format:     importFormat,
					KeyColumns: keys,
					Replace:    replace,
				})
				if err != nil {
					return fmt.Errorf("import %q: %w", path, err)
				}
				s.logger.Info("table imported", "table", table.Name, "rows", table.RowCount(), "columns", table.ColumnCount())
				_, _ = fmt.Fprintf(stdout, "imported %s: %d rows, %d columns\n", table.Name, table.RowCount(), table.ColumnCount())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "table name (defaults to the file name)")
	cmd.Flags().StringVar(&format, "format", "", "input format: tsv or csv (defaults to the file extension)")
	cmd.Flags().StringSliceVar(&keys, "key", nil, "mark a column as key (repeatable)")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace an existing table with the same name")
	return cmd
}

// resolveImportFormat prefers the flag, then a recognised extension, then the configured default.
func resolveImportFormat(flagValue, path, configured string) (app.Format, error) {
	if strings.TrimSpace(flagValue) != "" {
		return app.ParseFormat(flagValue)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".tab":
		return app.FormatFromPath(path), nil
	}
	if strings.TrimSpace(configured) == "" {
		return app.FormatTSV, nil
	}
	return app.ParseFormat(configured)
}

// newTablesCommand lists stored tables.
func newTablesCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List stored tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, stderr, "tables", func(s *session) error {
				tables, err := s.svc.ListTables(cmd.Context())
				if err != nil {
					return err
				}
				for _, table := range tables {
					_, _ = fmt.Fprintf(stdout, "%s\t%s\t%d rows\t%d columns\n", table.Name, table.ID, table.RowCount(), table.ColumnCount())
				}
				return nil
			})
		},
	}
}

// newFilterCommand evaluates rules against a table without the grid and prints the matching rows.
func newFilterCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		rules      []string
		saved      bool
		sortColumn string
		descending bool
		format     string
		countOnly  bool
		ruleFlags  ruleDefaults
	)
	cmd := &cobra.Command{
		Use:   "filter TABLE",
		Short: "Print the rows that pass a set of match rules",
		Long: `Rules read "[group:]column~pattern" or "[group:]column!~pattern" for a negated
rule. Rules sharing a group must all pass; a row is printed when any group passes.
--saved starts from the rules and sort stored by the grid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, stderr, "filter", func(s *session) error {
				ctx := cmd.Context()
				table, err := s.svc.GetTable(ctx, args[0])
				if err != nil {
					return err
				}
				outFormat, err := app.ParseFormat(format)
				if err != nil {
					return err
				}

				ruleSet := domain.FilterConfiguration{}
				col, order := -1, domain.SortAscending
				if saved {
					state, err := s.svc.GetTableState(ctx, table.ID)
					if err != nil {
						return err
					}
					ruleSet = append(ruleSet, state.Rules...)
					col, order = state.SortColumn, state.SortOrder
				}
				for _, raw := range rules {
					rule, err := parseRuleSpec(table, raw, ruleFlags)
					if err != nil {
						return err
					}
					ruleSet = append(ruleSet, rule)
				}
				if strings.TrimSpace(sortColumn) != "" {
					if col, err = app.ResolveColumn(table, sortColumn); err != nil {
						return err
					}
					order = domain.SortAscending
				}
				if descending {
					order = domain.SortDescending
				}

				engine := filter.NewEngine(table,
					filter.WithLogger(s.logger.Component("filter")),
					filter.WithConfiguration(ruleSet),
					filter.WithSort(col, order),
				)
				if countOnly {
					_, _ = fmt.Fprintf(stdout, "%d of %d rows\n", engine.RowCount(), engine.TotalRowCount())
					return nil
				}
				return s.svc.ExportTable(ctx, table.ID, stdout, outFormat, engine.SourceRows())
			})
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&rules, "rule", nil, "match rule [group:]column~pattern or column!~pattern (repeatable)")
	flags.BoolVar(&saved, "saved", false, "start from the rules and sort saved in the grid")
	flags.StringVar(&sortColumn, "sort", "", "sort by column name or index")
	flags.BoolVar(&descending, "desc", false, "sort descending")
	flags.StringVar(&format, "format", "tsv", "output format: tsv or csv")
	flags.BoolVar(&countOnly, "count", false, "print only the visible and total row counts")
	flags.BoolVar(&ruleFlags.regex, "regex", false, "treat patterns as regular expressions")
	flags.BoolVar(&ruleFlags.caseSensitive, "case-sensitive", false, "match case")
	flags.BoolVar(&ruleFlags.passIfBlank, "pass-blank", false, "blank cells pass every rule")
	flags.BoolVar(&ruleFlags.passIfEdited, "pass-edited", false, "cells edited from baseline pass every rule")
	flags.StringVar(&ruleFlags.source, "source", "primary", "text matched: primary, secondary or both")
	return cmd
}

// newSetCommand edits one cell.
func newSetCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "set TABLE ROW COLUMN VALUE",
		Short: "Set one cell; ROW is the 1-based number shown in the grid",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(args[1])
			if err != nil || row < 1 {
				return fmt.Errorf("%w: row must be a positive number, got %q", app.ErrInvalidInput, args[1])
			}
			return withSession(cmd, opts, stderr, "set", func(s *session) error {
				table, err := s.svc.SetCellValue(cmd.Context(), app.SetCellInput{
					Table:     args[0],
					Row:       row - 1,
					ColumnRef: args[2],
					Value:     args[3],
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "updated %s row %d %s\n", table.Name, row, args[2])
				return nil
			})
		},
	}
}

// newAppendCommand adds a row.
func newAppendCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "append TABLE [VALUE...]",
		Short: "Append a row; missing trailing values stay empty",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, stderr, "append", func(s *session) error {
				table, err := s.svc.AppendRow(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "appended row %d to %s\n", table.RowCount(), table.Name)
				return nil
			})
		},
	}
}

// newDeleteCommand removes a table and its saved view.
func newDeleteCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TABLE",
		Short: "Delete a table and its saved view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, stderr, "delete", func(s *session) error {
				if err := s.svc.DeleteTable(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// newExportCommand writes a table back out as TSV or CSV.
func newExportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export TABLE",
		Short: "Export a table as TSV or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, stderr, "export", func(s *session) error {
				outFormat, err := app.ParseFormat(format)
				if err != nil {
					return err
				}
				return writeOutput(outPath, stdout, func(w io.Writer) error {
					return s.svc.ExportTable(cmd.Context(), args[0], w, outFormat, nil)
				})
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "tsv", "output format: tsv or csv")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newSnapshotCommand groups the JSON backup commands.
func newSnapshotCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Back up or restore every table and saved view as JSON",
	}

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, stderr, "snapshot export", func(s *session) error {
				snap, err := s.svc.ExportSnapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				encoded, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encode snapshot json: %w", err)
				}
				encoded = append(encoded, '\n')
				return writeOutput(outPath, stdout, func(w io.Writer) error {
					_, err := w.Write(encoded)
					return err
				})
			})
		},
	}
	exportCmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")

	var inPath string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}
			return withSession(cmd, opts, stderr, "snapshot import", func(s *session) error {
				if err := s.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				_, _ = fmt.Fprintf(stdout, "restored %d tables\n", len(snap.Tables))
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}

// writeOutput runs write against stdout for "-" and against a created file otherwise.
func writeOutput(outPath string, stdout io.Writer, write func(io.Writer) error) error {
	if outPath == "" || outPath == "-" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

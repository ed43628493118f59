package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/packgrid/internal/config"
)

// devLogDirDefault is used when the config leaves logging.dev_file.dir blank.
const devLogDirDefault = ".packgrid/log"

// logSink is one destination of runtime events.
type logSink struct {
	*charmLog.Logger
	console bool
}

// runtimeLogger writes command lifecycle events to stderr and, in dev mode, to a daily logfmt
// file. The grid mutes the stderr sink while it owns the terminal.
type runtimeLogger struct {
	appName string
	sinks   []logSink
	muted   bool
	devFile *os.File
	devLog  string
}

// newRuntimeLogger builds the sinks for one packgrid invocation.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if now == nil {
		now = time.Now
	}

	l := &runtimeLogger{appName: appName}
	l.sinks = append(l.sinks, logSink{Logger: newSinkLogger(stderr, level, appName, charmLog.TextFormatter), console: true})
	if !devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	path, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	file, err := openDevLogFile(path)
	if err != nil {
		return nil, err
	}
	l.devFile = file
	l.devLog = path
	l.sinks = append(l.sinks, logSink{Logger: newSinkLogger(file, level, appName, charmLog.LogfmtFormatter)})
	return l, nil
}

// newSinkLogger configures one charm logger with RFC3339 timestamps.
func newSinkLogger(w io.Writer, level charmLog.Level, prefix string, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

// openDevLogFile opens path for appending, creating its directory.
func openDevLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	return file, nil
}

// DevLogPath returns the dev log file in use, or "".
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the dev log file when one is open.
func (l *runtimeLogger) Close() error {
	if l == nil || l.devFile == nil {
		return nil
	}
	err := l.devFile.Close()
	l.devFile = nil
	return err
}

// SetConsoleEnabled mutes or unmutes the stderr sink.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l != nil {
		l.muted = !enabled
	}
}

// consoleActive reports whether stderr currently receives events.
func (l *runtimeLogger) consoleActive() bool {
	return l != nil && !l.muted
}

// Component returns the logger handed to the filter engine, frozen controller or grid. Events go
// to the dev log file when one is open, else to stderr unless muted.
func (l *runtimeLogger) Component(name string) *charmLog.Logger {
	if l == nil {
		return charmLog.New(io.Discard)
	}
	prefix := l.appName + "/" + name
	for _, sink := range l.sinks {
		if !sink.console {
			return sink.WithPrefix(prefix)
		}
	}
	if l.consoleActive() {
		return l.sinks[0].WithPrefix(prefix)
	}
	return charmLog.New(io.Discard)
}

// emit sends one event to every live sink.
func (l *runtimeLogger) emit(level charmLog.Level, msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if sink.console && l.muted {
			continue
		}
		sink.Log(level, msg, keyvals...)
	}
}

// Debug logs a debug event.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) { l.emit(charmLog.DebugLevel, msg, keyvals...) }

// Info logs an informational event.
func (l *runtimeLogger) Info(msg string, keyvals ...any) { l.emit(charmLog.InfoLevel, msg, keyvals...) }

// Warn logs a warning.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) { l.emit(charmLog.WarnLevel, msg, keyvals...) }

// Error logs an error event.
func (l *runtimeLogger) Error(msg string, keyvals ...any) { l.emit(charmLog.ErrorLevel, msg, keyvals...) }

// devLogFilePath names the day's log file, "<app>-YYYYMMDD.log". Relative dirs are anchored at
// the enclosing workspace root.
func devLogFilePath(dir, appName string, day time.Time) (string, error) {
	base := strings.TrimSpace(dir)
	if base == "" {
		base = devLogDirDefault
	}
	if !filepath.IsAbs(base) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		base = filepath.Join(workspaceRootFrom(cwd), base)
	}
	name := sanitizeLogFileStem(appName) + "-" + day.Format("20060102") + ".log"
	return filepath.Join(filepath.Clean(base), name), nil
}

// workspaceRootFrom returns the nearest ancestor of start holding go.mod or .git, or start.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	for dir := start; ; {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// hasWorkspaceMarker reports whether dir holds go.mod or .git.
func hasWorkspaceMarker(dir string) bool {
	for _, marker := range []string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// sanitizeLogFileStem turns an app name into a file-name segment.
func sanitizeLogFileStem(appName string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(appName))
	if stem = strings.Trim(stem, "-"); stem == "" {
		return "packgrid"
	}
	return stem
}

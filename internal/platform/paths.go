package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// defaultAppName names the config and data directories.
const defaultAppName = "packgrid"

// ErrEmptyBaseDir and ErrEmptyAppName reject incomplete path inputs.
var (
	ErrEmptyBaseDir = errors.New("empty base dir")
	ErrEmptyAppName = errors.New("empty app name")
)

// Paths holds where packgrid keeps its config file, the table database and its logs.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	LogDir     string
}

// Options selects the app name and dev-mode suffix.
type Options struct {
	AppName string
	DevMode bool
}

// baseDirs are the per-user roots the app directories are created under.
type baseDirs struct {
	config string
	data   string
}

// envOverrides lists, per GOOS, the variables that replace the config and data roots.
var envOverrides = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// DefaultPaths resolves paths for the packgrid app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: defaultAppName})
}

// DefaultPathsWithOptions resolves host paths. Dev mode keeps a separate "<app>-dev" tree so a
// development build never opens the everyday table database.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = defaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}
	base, err := hostBaseDirs(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	env := map[string]string{}
	for _, names := range envOverrides {
		for _, name := range names {
			env[name] = os.Getenv(name)
		}
	}
	return PathsFor(runtime.GOOS, env, base.config, base.data, appName)
}

// hostBaseDirs asks the OS for the user config and data roots.
func hostBaseDirs(goos string) (baseDirs, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return baseDirs{}, fmt.Errorf("user config dir: %w", err)
	}
	base := baseDirs{config: configDir, data: configDir}
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return baseDirs{}, fmt.Errorf("user home dir: %w", err)
		}
		base.data = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			base.data = v
		}
	}
	return base, nil
}

// PathsFor computes paths from explicit inputs. macOS and unknown platforms ignore env.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, ErrEmptyBaseDir
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, ErrEmptyAppName
	}

	base := baseDirs{config: userConfigDir, data: userDataDir}
	if names, ok := envOverrides[goos]; ok {
		if v := env[names[0]]; v != "" {
			base.config = v
		}
		if v := env[names[1]]; v != "" {
			base.data = v
		}
	}

	dataDir := filepath.Join(base.data, appName)
	return Paths{
		ConfigPath: filepath.Join(base.config, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}

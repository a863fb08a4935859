// Package platform resolves where kanmap keeps its config, board database and logs.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName is the default directory and database name.
const AppName = "kanmap"

// HomeEnv overrides every base directory with one portable root.
const HomeEnv = "KANMAP_HOME"

// Paths lists the files one kanmap install reads and writes.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	LogPath    string
}

// Options defines optional settings for path resolution.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: AppName})
}

// DefaultPathsWithOptions resolves paths for the running OS and environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = AppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	env := map[string]string{
		HomeEnv:           os.Getenv(HomeEnv),
		"XDG_CONFIG_HOME": os.Getenv("XDG_CONFIG_HOME"),
		"XDG_DATA_HOME":   os.Getenv("XDG_DATA_HOME"),
		"APPDATA":         os.Getenv("APPDATA"),
		"LOCALAPPDATA":    os.Getenv("LOCALAPPDATA"),
	}
	if home := strings.TrimSpace(env[HomeEnv]); home != "" {
		return PathsFor(runtime.GOOS, env, home, home, appName)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves paths for goos from explicit inputs so it can be tested on any host.
// A KANMAP_HOME entry in env wins over every OS convention.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}
	if home := strings.TrimSpace(env[HomeEnv]); home != "" {
		root := filepath.Join(home, appName)
		return layoutUnder(root, root, appName), nil
	}
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}

	configBase := userConfigDir
	dataBase := userDataDir
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if v := env["XDG_CONFIG_HOME"]; v != "" {
			configBase = v
		}
		if v := env["XDG_DATA_HOME"]; v != "" {
			dataBase = v
		}
	case "windows":
		if v := env["APPDATA"]; v != "" {
			configBase = v
		}
		if v := env["LOCALAPPDATA"]; v != "" {
			dataBase = v
		}
	}
	return layoutUnder(filepath.Join(configBase, appName), filepath.Join(dataBase, appName), appName), nil
}

func layoutUnder(configDir, dataDir, appName string) Paths {
	return Paths{
		ConfigPath: filepath.Join(configDir, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		LogPath:    filepath.Join(dataDir, "logs", appName+".log"),
	}
}

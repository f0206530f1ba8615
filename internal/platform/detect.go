package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appDirName     = "voxrelay"
	configFileName = "config.yaml"

	// ConfigEnv names a config file used when --config is not given.
	ConfigEnv = "VOXRELAY_CONFIG"
)

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// Dirs are the per-user directories voxrelay reads and writes outside the
// working directory.
type Dirs struct {
	Data   string
	Config string
}

func (d Dirs) Models() string {
	return filepath.Join(d.Data, "models")
}

func (d Dirs) ConfigFile() string {
	return filepath.Join(d.Config, configFileName)
}

// DirsFor computes Dirs for goos without touching the environment. getenv is
// consulted for XDG_DATA_HOME and XDG_CONFIG_HOME on linux.
func DirsFor(goos, homeDir string, getenv func(string) string) (Dirs, error) {
	if homeDir == "" {
		return Dirs{}, errors.New("home directory is empty")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	switch goos {
	case "linux":
		data := filepath.Join(homeDir, ".local", "share")
		if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
			data = xdg
		}
		config := filepath.Join(homeDir, ".config")
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			config = xdg
		}
		return Dirs{Data: filepath.Join(data, appDirName), Config: filepath.Join(config, appDirName)}, nil
	case "darwin":
		base := filepath.Join(homeDir, "Library", "Application Support", appDirName)
		return Dirs{Data: base, Config: base}, nil
	case "windows":
		return Dirs{
			Data:   filepath.Join(homeDir, "AppData", "Local", appDirName),
			Config: filepath.Join(homeDir, "AppData", "Roaming", appDirName),
		}, nil
	default:
		return Dirs{}, fmt.Errorf("unsupported OS: %s", goos)
	}
}

func UserDirs() (Dirs, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve user home: %w", err)
	}
	return DirsFor(runtime.GOOS, homeDir, os.Getenv)
}

func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	dirs, err := UserDirs()
	if err != nil {
		return "", err
	}
	return dirs.Models(), nil
}

// ResolveConfigFile picks the config file to load: the explicit path, then
// $VOXRELAY_CONFIG, then the per-user config.yaml if it exists. An empty
// result means no file.
func ResolveConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if fromEnv := os.Getenv(ConfigEnv); fromEnv != "" {
		return fromEnv
	}

	dirs, err := UserDirs()
	if err != nil {
		return ""
	}
	if info, err := os.Stat(dirs.ConfigFile()); err == nil && !info.IsDir() {
		return dirs.ConfigFile()
	}
	return ""
}

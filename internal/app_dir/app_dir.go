package app_dir

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetAppDir returns the directory where dnt keeps its module cache and the
// deno binary. `DNT_DIR` overrides the default location.
func GetAppDir() (string, error) {
	if dir := os.Getenv("DNT_DIR"); dir != "" {
		return filepath.Abs(dir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	appDir := filepath.Join(homeDir, ".dnt")
	if runtime.GOOS == "windows" {
		appDir = filepath.Join(homeDir, "AppData\\Local\\dnt")
	}

	return appDir, nil
}

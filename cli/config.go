package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-dev/dnt/builder"
	"github.com/esm-dev/dnt/internal/app_dir"
	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/jsonc"
	"github.com/esm-dev/dnt/internal/npm"
	"github.com/esm-dev/dnt/internal/storage"
)

// Config is the build configuration read from `dnt.json`.
type Config struct {
	EntryPoints   []builder.EntryPoint     `json:"entryPoints"`
	OutDir        string                   `json:"outDir"`
	Package       *npm.JSONObject          `json:"package"`
	TypeCheck     *bool                    `json:"typeCheck"`
	CJS           *bool                    `json:"cjs"`
	Declaration   *bool                    `json:"declaration"`
	Test          *bool                    `json:"test"`
	UseSourceMaps compiler.SourceMaps      `json:"useSourceMaps"`
	ScriptTarget  compiler.ScriptTarget    `json:"scriptTarget"`
	Mappings      map[string]MappedPackage `json:"mappings"`
	ImportMap     string                   `json:"importMap"`
	Cache         storage.StorageOptions   `json:"cache"`
	CacheDir      string                   `json:"cacheDir"`
	DenoPath      string                   `json:"denoPath"`
	LogLevel      string                   `json:"logLevel"`
	// RootDir is the directory of the config file.
	RootDir string `json:"-"`
}

// MappedPackage is the npm package a specifier is replaced with.
type MappedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	SubPath string `json:"subPath"`
}

// LoadConfig loads the config from the given JSONC file.
func LoadConfig(filename string) (*Config, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("fail to read config file: %w", err)
	}
	var config Config
	err = jsonc.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("fail to parse config: %w", err)
	}
	config.RootDir = filepath.Dir(filename)
	err = normalizeConfig(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func normalizeConfig(config *Config) error {
	if config.RootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		config.RootDir = cwd
	}
	if config.OutDir == "" {
		config.OutDir = "npm"
	}
	config.OutDir = absPath(config.RootDir, config.OutDir)
	if config.ImportMap == "" {
		for _, name := range []string{"deno.json", "deno.jsonc"} {
			if fi, err := os.Stat(filepath.Join(config.RootDir, name)); err == nil && !fi.IsDir() {
				config.ImportMap = name
				break
			}
		}
	}
	if config.ImportMap != "" {
		config.ImportMap = absPath(config.RootDir, config.ImportMap)
	}
	if config.CacheDir == "" {
		if v := os.Getenv("DNT_CACHE_DIR"); v != "" {
			config.CacheDir = v
		} else {
			appDir, err := app_dir.GetAppDir()
			if err != nil {
				return fmt.Errorf("fail to get the app directory: %w", err)
			}
			config.CacheDir = filepath.Join(appDir, "cache")
		}
	}
	config.CacheDir = absPath(config.RootDir, config.CacheDir)
	if config.DenoPath == "" {
		config.DenoPath = os.Getenv("DNT_DENO_PATH")
	}
	if config.Cache.Type == "" {
		config.Cache.Type = "fs"
	}
	switch config.Cache.Type {
	case "fs":
		if config.Cache.Endpoint == "" {
			config.Cache.Endpoint = filepath.Join(config.CacheDir, "modules")
		}
	case "s3":
		if config.Cache.CacheDir == "" {
			config.Cache.CacheDir = filepath.Join(config.CacheDir, "modules")
		}
	default:
		return fmt.Errorf("unsupported cache type %q", config.Cache.Type)
	}
	if config.LogLevel == "" {
		config.LogLevel = os.Getenv("LOG_LEVEL")
		if config.LogLevel == "" {
			config.LogLevel = "info"
		}
	}
	return nil
}

// mappings converts the configured mappings to npm packages.
func (config *Config) mappings() map[string]npm.Package {
	if len(config.Mappings) == 0 {
		return nil
	}
	m := make(map[string]npm.Package, len(config.Mappings))
	for specifier, pkg := range config.Mappings {
		m[specifier] = npm.Package{Name: pkg.Name, Version: pkg.Version, SubPath: pkg.SubPath}
	}
	return m
}

func absPath(root string, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

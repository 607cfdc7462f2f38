// Package config resolves installer settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults
//  2. nodestore.toml in the project directory
//  3. NODESTORE_* entries of a .env file in the project directory
//  4. NODESTORE_* environment variables
//
// Command-line flags are applied on top by the CLI.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/nodestore/pkg/cache"
	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/layout"
)

// FileName is the per-project configuration file.
const FileName = "nodestore.toml"

// EnvPrefix prefixes every environment variable the installer reads.
const EnvPrefix = "NODESTORE_"

// Config holds installer settings.
type Config struct {
	StoreRoot     string `toml:"store_root"`
	IgnoreScripts bool   `toml:"ignore_scripts"`
	SkipIntegrity bool   `toml:"skip_integrity"`
	Production    bool   `toml:"production"`
	TarCommand    string `toml:"tar_command"`
	Shell         string `toml:"shell"`
	CacheDir      string `toml:"cache_dir"`
	NoCache       bool   `toml:"no_cache"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		StoreRoot:  layout.DefaultStoreRoot,
		TarCommand: "tar",
		Shell:      "sh",
		CacheDir:   cache.DefaultDir(),
	}
}

// Load resolves settings for the project in dir.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}

	envFile := filepath.Join(dir, ".env")
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", envFile)
	}

	if err := cfg.applyEnv(overlay(os.LookupEnv, dotenv)); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// overlay looks a key up in the process environment first and falls back to
// the values read from a .env file. An empty process variable counts as
// unset. The process environment itself is never modified.
func overlay(env func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// applyEnv overlays NODESTORE_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORE_ROOT":  &c.StoreRoot,
		"TAR_COMMAND": &c.TarCommand,
		"SHELL":       &c.Shell,
		"CACHE_DIR":   &c.CacheDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"IGNORE_SCRIPTS": &c.IgnoreScripts,
		"SKIP_INTEGRITY": &c.SkipIntegrity,
		"PRODUCTION":     &c.Production,
		"NO_CACHE":       &c.NoCache,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s%s", EnvPrefix, key)
		}
		*dst = b
	}
	return nil
}

// Validate checks settings that would break the store layout.
func (c Config) Validate() error {
	root := filepath.ToSlash(c.StoreRoot)
	switch {
	case root == "" || root == "." || root == "..":
		return errors.New(errors.ErrCodeInvalidInput, "store_root %q is not a directory name", c.StoreRoot)
	case strings.Contains(root, "/"):
		return errors.New(errors.ErrCodeInvalidInput, "store_root %q must be a single path segment", c.StoreRoot)
	case root == layout.BinDirName:
		return errors.New(errors.ErrCodeInvalidInput, "store_root cannot be %s", layout.BinDirName)
	}
	return nil
}

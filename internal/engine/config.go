package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"loom/internal/entity"
	"loom/internal/fingerprint"
)

// ConfigFile is the project configuration file name.
const ConfigFile = "loom.yaml"

// Config describes one project to the engine. Supplied by the caller at
// cycle start; the engine holds no other configuration.
type Config struct {
	// Root is the project root directory. Not read from the file.
	Root string `yaml:"-"`

	// EntityDirs are the entity source directories, relative to Root.
	EntityDirs []string `yaml:"entities"`

	// OutputRoot is the directory generated artifacts live under,
	// relative to Root.
	OutputRoot string `yaml:"output"`

	// StateDir holds the manifest and graph snapshot, relative to Root.
	StateDir string `yaml:"state_dir"`

	// DefaultKinds are the artifact kinds enabled for entities that do
	// not declare an artifacts block.
	DefaultKinds []entity.Kind `yaml:"kinds"`

	// Version is the engine version string mixed into fingerprints.
	// Defaults to the built-in engine version; overridable for tests.
	Version string `yaml:"-"`
}

// Defaults fills unset fields in place and returns the config.
func (c Config) Defaults() Config {
	if len(c.EntityDirs) == 0 {
		c.EntityDirs = []string{"entities"}
	}
	if c.OutputRoot == "" {
		c.OutputRoot = "generated"
	}
	if c.StateDir == "" {
		c.StateDir = ".loom"
	}
	if len(c.DefaultKinds) == 0 {
		c.DefaultKinds = []entity.Kind{entity.KindSchema, entity.KindAPIDoc, entity.KindMigration, entity.KindDoc, entity.KindTest}
	}
	if c.Version == "" {
		c.Version = fingerprint.EngineVersion
	}
	return c
}

// LoadConfig reads loom.yaml from the project root. A missing file yields
// the default configuration; a malformed one is an error.
func LoadConfig(root string) (Config, error) {
	cfg := Config{Root: root}

	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if os.IsNotExist(err) {
		return cfg.Defaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", ConfigFile, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigFile, err)
	}
	cfg.Root = root
	return cfg.Defaults(), nil
}

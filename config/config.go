// Package config loads the generator profile: which dialect to emit, the
// names used in generated code, and where output goes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/rsp-testgen/chunk"
	"github.com/lattice-substrate/rsp-testgen/emit"
	"github.com/lattice-substrate/rsp-testgen/rsp"
	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

// Environment variables that override file values.
const (
	EnvDialect   = "RSP_TESTGEN_DIALECT"
	EnvChunkSize = "RSP_TESTGEN_CHUNK_SIZE"
)

// DefaultOutputPattern names the generated file after the input's stem.
const DefaultOutputPattern = "tests_{stem}{ext}"

// Config is the generator profile.
type Config struct {
	Dialect      string   `yaml:"dialect"`
	HashFunction string   `yaml:"hash_function"`
	UnitPrefix   string   `yaml:"unit_prefix"`
	DriverName   string   `yaml:"driver_name"`
	Includes     []string `yaml:"includes"`
	Encoding     string   `yaml:"encoding"`
	ChunkSize    int      `yaml:"chunk_size"`

	// OutputDir is where generated files go. Empty means the working
	// directory.
	OutputDir string `yaml:"output_dir"`

	// OutputPattern may use {stem} and {ext}.
	OutputPattern string `yaml:"output_pattern"`

	InertSections bool `yaml:"inert_sections"`
	MaxLineSize   int  `yaml:"max_line_size"`
}

// Default returns the SourcePawn/SHA256 profile.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Dialect == "" {
		c.Dialect = emit.SourcePawn
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = chunk.DefaultSize
	}
	if c.OutputPattern == "" {
		c.OutputPattern = DefaultOutputPattern
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = rsp.DefaultMaxLineSize
	}
	// Name defaults depend on the dialect and are resolved by the emitter,
	// so an override of dialect alone still picks matching names.
}

// Load reads, decodes, and validates a YAML profile. Unknown keys are
// rejected. Environment overrides are applied before validation.
//
//nolint:gosec // config path is explicit operator input.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rsperr.Wrap(rsperr.ConfigInvalid, -1, "read config", err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode parses one YAML document and applies defaults. It does not
// validate.
func Decode(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, rsperr.Wrap(rsperr.ConfigInvalid, -1, "decode config yaml", err)
	}
	if err := ensureSingleYAMLDocument(dec); err != nil {
		return nil, rsperr.Wrap(rsperr.ConfigInvalid, -1, "decode config yaml", err)
	}
	c.applyDefaults()
	return &c, nil
}

func ensureSingleYAMLDocument(dec *yaml.Decoder) error {
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return fmt.Errorf("unexpected trailing yaml document")
		}
		return fmt.Errorf("decode trailing yaml document: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDialect); ok && v != "" {
		c.Dialect = v
	}
	if v, ok := lookup(EnvChunkSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rsperr.Wrap(rsperr.ConfigInvalid, -1, EnvChunkSize+" is not an integer", err)
		}
		c.ChunkSize = n
	}
	return nil
}

// Validate checks the profile against what the emitter can render.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.MaxLineSize < 0 {
		return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("max_line_size must not be negative, got %d", c.MaxLineSize))
	}
	if !strings.Contains(c.OutputPattern, "{stem}") {
		return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("output_pattern %q must contain {stem}", c.OutputPattern))
	}
	if strings.ContainsAny(c.OutputPattern, `/\`) {
		return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("output_pattern %q must be a file name; use output_dir for directories", c.OutputPattern))
	}
	return c.EmitOptions(nil).Validate()
}

// EmitOptions adapts the profile to emitter options.
func (c *Config) EmitOptions(log *zap.Logger) emit.Options {
	return emit.Options{
		Dialect:      c.Dialect,
		HashFunction: c.HashFunction,
		UnitPrefix:   c.UnitPrefix,
		DriverName:   c.DriverName,
		Includes:     append([]string(nil), c.Includes...),
		Encoding:     c.Encoding,
		ChunkSize:    c.ChunkSize,
		Logger:       log,
	}
}

// ParseOptions adapts the profile to parser options.
func (c *Config) ParseOptions() *rsp.Options {
	return &rsp.Options{
		MaxLineSize:   c.MaxLineSize,
		InertSections: c.InertSections,
	}
}

// OutputPath derives the generated file's path from the input path, e.g.
// "vectors/SHA256ShortMsg.rsp" becomes "tests_SHA256ShortMsg.sp".
func (c *Config) OutputPath(inputPath string) string {
	ext := ".sp"
	if d, ok := emit.Lookup(c.Dialect); ok {
		ext = d.Extension()
	}
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.NewReplacer("{stem}", stem, "{ext}", ext).Replace(c.OutputPattern)
	if c.OutputDir == "" {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "testgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func requireConfigInvalid(t *testing.T, err error) {
	t.Helper()
	var re *rsperr.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, rsperr.ConfigInvalid, re.Class)
}

func noEnv(string) (string, bool) { return "", false }

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "sourcepawn", c.Dialect)
	assert.Equal(t, 1000, c.ChunkSize)
	assert.Equal(t, DefaultOutputPattern, c.OutputPattern)
	assert.False(t, c.InertSections)
	require.NoError(t, c.Validate())

	o := c.EmitOptions(nil)
	assert.Equal(t, "sourcepawn", o.Dialect)
	assert.Empty(t, o.UnitPrefix, "name defaults are resolved by the emitter")
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvDialect, "")
	t.Setenv(EnvChunkSize, "")

	path := writeConfig(t, `
dialect: c
hash_function: sha512_hex
unit_prefix: sha512_test_
chunk_size: 512
includes: ["stdio.h", "string.h", '"sha512.h"']
output_dir: out
inert_sections: true
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c", c.Dialect)
	assert.Equal(t, "sha512_hex", c.HashFunction)
	assert.Equal(t, "sha512_test_", c.UnitPrefix)
	assert.Equal(t, 512, c.ChunkSize)
	assert.Equal(t, []string{"stdio.h", "string.h", `"sha512.h"`}, c.Includes)
	assert.True(t, c.InertSections)
	assert.Equal(t, DefaultOutputPattern, c.OutputPattern)

	po := c.ParseOptions()
	assert.True(t, po.InertSections)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDialect, "")
	t.Setenv(EnvChunkSize, "")

	c, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "dialect: c\nchunk: 10\n"))
	requireConfigInvalid(t, err)
}

func TestLoadRejectsSecondDocument(t *testing.T) {
	_, err := Load(writeConfig(t, "dialect: c\n---\ndialect: sourcepawn\n"))
	requireConfigInvalid(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	requireConfigInvalid(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvDialect, "c")
	t.Setenv(EnvChunkSize, "250")

	c, err := Load(writeConfig(t, "dialect: sourcepawn\n"))
	require.NoError(t, err)
	assert.Equal(t, "c", c.Dialect)
	assert.Equal(t, 250, c.ChunkSize)
}

func TestApplyEnvRejectsNonInteger(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(func(k string) (string, bool) {
		if k == EnvChunkSize {
			return "lots", true
		}
		return "", false
	})
	requireConfigInvalid(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown_dialect", func(c *Config) { c.Dialect = "fortran" }},
		{"zero_chunk", func(c *Config) { c.ChunkSize = -5 }},
		{"chunk_too_large", func(c *Config) { c.ChunkSize = 5000 }},
		{"pattern_without_stem", func(c *Config) { c.OutputPattern = "tests.sp" }},
		{"pattern_with_dir", func(c *Config) { c.OutputPattern = "out/{stem}.sp" }},
		{"bad_identifier", func(c *Config) { c.UnitPrefix = "SHA Test" }},
		{"negative_line_size", func(c *Config) { c.MaxLineSize = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			requireConfigInvalid(t, c.Validate())
		})
	}
}

func TestOutputPath(t *testing.T) {
	c := Default()
	require.NoError(t, c.ApplyEnv(noEnv))
	assert.Equal(t, "tests_SHA256ShortMsg.sp", c.OutputPath(filepath.Join("vectors", "SHA256ShortMsg.rsp")))
	assert.Equal(t, "tests_noext.sp", c.OutputPath("noext"))

	c.Dialect = "c"
	c.OutputDir = "gen"
	assert.Equal(t, filepath.Join("gen", "tests_SHA1LongMsg.c"), c.OutputPath("SHA1LongMsg.rsp"))

	c.OutputPattern = "{stem}_vectors{ext}"
	assert.Equal(t, filepath.Join("gen", "SHA1LongMsg_vectors.c"), c.OutputPath("SHA1LongMsg.rsp"))
}

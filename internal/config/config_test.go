package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, []int{3, 3}, cfg.Dims)
	require.Equal(t, 3, cfg.RunLength)
	require.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestParseDims(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"3x3", []int{3, 3}, false},
		{"4X4x4", []int{4, 4, 4}, false},
		{" 7 ", []int{7}, false},
		{"3x", nil, true},
		{"3x0", nil, true},
		{"axb", nil, true},
		{"", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDims(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.want, mustParse(t, FormatDims(got)))
		})
	}
}

func mustParse(t *testing.T, s string) []int {
	t.Helper()
	dims, err := ParseDims(s)
	require.NoError(t, err)
	return dims
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ttb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dims: [4, 4]\nrun_length: 4\nworkers: 2\ndir: /from/file\n"), 0644))

	t.Setenv(EnvDir, "/from/env")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []int{4, 4}, cfg.Dims)
	require.Equal(t, 4, cfg.RunLength)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, "/from/env", cfg.Dir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvShape(t *testing.T) {
	t.Setenv(EnvDims, "2x2x2")
	t.Setenv(EnvRun, "2")
	t.Setenv(EnvWorkers, "3")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 2}, cfg.Dims)
	require.Equal(t, 2, cfg.RunLength)
	require.Equal(t, 3, cfg.Workers)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dims: [3, 3\n"), 0644))
		_, err := Load(path)
		require.Error(t, err)
	})
	t.Run("bad workers", func(t *testing.T) {
		t.Setenv(EnvWorkers, "many")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalid)
	})
	t.Run("bad dims", func(t *testing.T) {
		t.Setenv(EnvDims, "3by3")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dims", func(c *Config) { c.Dims = nil }},
		{"zero dim", func(c *Config) { c.Dims = []int{3, 0} }},
		{"run", func(c *Config) { c.RunLength = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"dir", func(c *Config) { c.Dir = "" }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestTablebase(t *testing.T) {
	cfg := Default()
	cfg.Dir = t.TempDir()
	tb := cfg.Tablebase(zerolog.Nop())
	require.Equal(t, cfg.Dims, tb.Dims)
	require.Equal(t, cfg.RunLength, tb.RunLength)
	require.Equal(t, cfg.Workers, tb.Workers)
	require.Equal(t, filepath.Join(cfg.Dir, "3_3-3-5.ttb"), tb.Path(5))

	tb.Dims[0] = 9
	require.Equal(t, 3, cfg.Dims[0])
}

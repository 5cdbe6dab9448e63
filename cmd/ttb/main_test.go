package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kinarow/egtb/internal/archive"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newApp().root()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateProbeVerify(t *testing.T) {
	dir := t.TempDir()
	shape := []string{"--dims", "2x2", "--run", "2", "--dir", dir, "--workers", "2"}

	out, err := run(t, append([]string{"generate"}, shape...)...)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2_2-2.manifest.yaml"), strings.TrimSpace(out))

	out, err = run(t, append([]string{"probe", "--moves", "0-0,1-1"}, shape...)...)
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Equal(t, []string{"start", "x-wins"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"0-0", "x-wins"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"1-1", "x-wins"}, strings.Fields(lines[2]))

	out, err = run(t, append([]string{"verify"}, shape...)...)
	require.NoError(t, err)
	require.Equal(t, 5, strings.Count(out, "ok "))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_2-2-1.ttb"), []byte{0}, 0644))
	_, err = run(t, append([]string{"verify"}, shape...)...)
	require.ErrorIs(t, err, errVerify)
}

func TestProbeIllegalMove(t *testing.T) {
	dir := t.TempDir()
	shape := []string{"--dims", "2x2", "--run", "2", "--dir", dir}
	_, err := run(t, append([]string{"generate"}, shape...)...)
	require.NoError(t, err)

	_, err = run(t, append([]string{"probe", "--moves", "0-0,0-0"}, shape...)...)
	require.Error(t, err)

	_, err = run(t, append([]string{"probe", "--moves", "a-b"}, shape...)...)
	require.Error(t, err)
}

func TestArchiveExtract(t *testing.T) {
	dir := t.TempDir()
	shape := []string{"--dims", "2x2", "--run", "2", "--dir", dir}
	_, err := run(t, append([]string{"generate"}, shape...)...)
	require.NoError(t, err)

	out, err := run(t, append([]string{"archive"}, shape...)...)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	require.Equal(t, filepath.Join(dir, "2x2-2.ttba"), path)
	files, err := archive.Read(path)
	require.NoError(t, err)
	require.Len(t, files, 6)

	dest := t.TempDir()
	_, err = run(t, "extract", "--in", path, "--dims", "2x2", "--run", "2", "--dir", dest)
	require.NoError(t, err)

	out, err = run(t, "verify", "--dims", "2x2", "--run", "2", "--dir", dest)
	require.NoError(t, err)
	require.Equal(t, 5, strings.Count(out, "ok "))
}

func TestBadFlags(t *testing.T) {
	_, err := run(t, "generate", "--dims", "3x0", "--dir", t.TempDir())
	require.Error(t, err)

	_, err = run(t, "verify", "--dir", t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "extract", "--dir", t.TempDir())
	require.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	shape := []string{"--dims", "2x2", "--run", "2", "--dir", dir}
	_, err := run(t, append([]string{"generate"}, shape...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := newApp().root()
	root.SetArgs(append([]string{"serve", "--addr", "127.0.0.1:0", "--log-level", "error"}, shape...))
	require.NoError(t, root.ExecuteContext(ctx))
}

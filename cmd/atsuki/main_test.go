package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsuki/config"
)

func TestExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no input", nil, 1},
		{"too many args", []string{"a.png", "shaders", "extra"}, 1},
		{"unknown flag", []string{"--bogus", "a.png"}, 1},
		{"bad log level", []string{"--log-level", "loud", "a.png"}, 1},
		{"bad watch mode", []string{"--watch", "inotify", "a.png"}, 1},
		{"unreadable input", []string{missing, t.TempDir()}, -1},
		{"bad config", []string{"--config", filepath.Join(t.TempDir(), "none.toml"), missing}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			got := execute(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, stdout.String(), "ASCII  EFFECT  FILTER")
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

func TestUsageOnlyForArgumentErrors(t *testing.T) {
	usage := [][]string{
		nil,
		{"--bogus", "a.png"},
		{"--log-level", "loud", "a.png"},
	}
	for _, args := range usage {
		var stdout, stderr bytes.Buffer
		execute(args, &stdout, &stderr)
		assert.Contains(t, stderr.String(), "Usage:", "%q", args)
		assert.NotContains(t, stdout.String(), "Usage:", "%q", args)
	}

	var stdout, stderr bytes.Buffer
	execute([]string{filepath.Join(t.TempDir(), "missing.png"), t.TempDir()}, &stdout, &stderr)
	assert.NotContains(t, stderr.String(), "Usage:")
	assert.NotContains(t, stdout.String(), "Usage:")
}

func TestHelpGoesToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, execute([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage:")
	assert.NotContains(t, stderr.String(), "Error:")
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cmd := newCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--width", "640", "--no-vsync", "--watch", "notify"}))

	opts := optionsOf(t, cmd)
	applyFlags(cmd, opts, cfg)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset flags keep the file value")
	assert.False(t, cfg.Window.VSync)
	assert.Equal(t, "notify", cfg.Watch)
}

// optionsOf reads the parsed flag values back into an options value.
func optionsOf(t *testing.T, cmd *cobra.Command) *options {
	t.Helper()
	f := cmd.Flags()
	opts := &options{}
	var err error
	opts.watch, err = f.GetString("watch")
	require.NoError(t, err)
	opts.width, err = f.GetInt("width")
	require.NoError(t, err)
	opts.height, err = f.GetInt("height")
	require.NoError(t, err)
	opts.noVSync, err = f.GetBool("no-vsync")
	require.NoError(t, err)
	return opts
}

func TestOpenSourceByExtension(t *testing.T) {
	dir := t.TempDir()
	_, err := openSource(filepath.Join(dir, "clip.mp4"))
	assert.Error(t, err)

	src, err := openSource("checker:32x16")
	require.NoError(t, err)
	w, h := src.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)

	bad := filepath.Join(dir, "still.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err = openSource(bad)
	assert.Error(t, err)
}

// Command atsuki renders an image or video through a chain of fragment
// shaders and shows the result in a window, rebuilding each shader when its
// source file is saved.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"atsuki/config"
	"atsuki/core"
	"atsuki/internal/opengl"
	"atsuki/media"
	"atsuki/media/video"
	"atsuki/renderer"
	"atsuki/shader"
)

const banner = `
    ______   ______  ______   __  __   __  __   __
   /\  __ \ /\__  _\/\  ___\ /\ \/\ \ /\ \/ /  /\ \
   \ \  __ \\/_/\ \/\ \___  \\ \ \_\ \\ \  _"-.\ \ \
    \ \_\ \_\  \ \_\ \/\_____\\ \_____\\ \_\ \_\\ \_\
     \/_/\/_/   \/_/  \/_____/ \/_____/ \/_/\/_/ \/_/
         ASCII  EFFECT  FILTER  FOR  YOUR  VIDEOS
`

const defaultShaderDir = "shaders"

// setupError marks failures after the arguments were accepted: bad input
// files, configuration, window or GPU setup, and decoding failures.
type setupError struct{ err error }

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

func fatal(err error) error {
	if err == nil {
		return nil
	}
	return &setupError{err: err}
}

type options struct {
	configPath string
	watch      string
	width      int
	height     int
	noVSync    bool
	logLevel   string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command and maps its outcome to an exit status: 0 on
// success, 1 for usage errors and -1 for everything else.
func execute(args []string, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, banner)

	cmd := newCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	var se *setupError
	if errors.As(err, &se) {
		return -1
	}
	fmt.Fprint(stderr, cmd.UsageString())
	return 1
}

func newCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "atsuki <input-path | checker:WxH> [shader-directory]",
		Short: "Run an image or video through a live-reloading shader pipeline",
		Long: `atsuki uploads the input to the GPU, runs it through the passes listed in
pipeline.toml (or the built-in default) and displays the result letterboxed
in a window. Saving any shader file rebuilds just that shader on the next
frame; a shader that fails to compile is reported and skipped until fixed.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(opts.logLevel, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := validateWatch(opts.watch); err != nil {
				return err
			}

			shaderDir := defaultShaderDir
			if len(args) == 2 {
				shaderDir = args[1]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts, args[0], shaderDir)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "pipeline TOML file (default <shader-directory>/"+config.FileName+" or the built-in pipeline)")
	f.StringVar(&opts.watch, "watch", "", "shader change detection: poll or notify (default from the pipeline file)")
	f.IntVar(&opts.width, "width", 0, "initial window width")
	f.IntVar(&opts.height, "height", 0, "initial window height")
	f.BoolVar(&opts.noVSync, "no-vsync", false, "disable vertical sync")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

func setupLogging(level string, w io.Writer) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}

func validateWatch(mode string) error {
	switch shader.WatchMode(mode) {
	case "", shader.WatchPoll, shader.WatchNotify:
		return nil
	}
	return fmt.Errorf("invalid --watch %q: want poll or notify", mode)
}

// applyFlags lets command-line flags override the pipeline file.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Pipeline) {
	flags := cmd.Flags()
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("width") && opts.width > 0 {
		cfg.Window.Width = opts.width
	}
	if flags.Changed("height") && opts.height > 0 {
		cfg.Window.Height = opts.height
	}
	if opts.noVSync {
		cfg.Window.VSync = false
	}
}

func openSource(input string) (media.Source, error) {
	switch {
	case media.IsPattern(input):
		return media.OpenPattern(input)
	case media.IsVideo(input):
		return video.Open(input)
	}
	return media.OpenImage(input)
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, inputPath, shaderDir string) error {
	cfg, from, err := config.Resolve(opts.configPath, shaderDir)
	if err != nil {
		return fatal(err)
	}
	applyFlags(cmd, opts, cfg)
	slog.Info("pipeline loaded", "from", from, "passes", len(cfg.Passes), "watch", cfg.Watch)

	src, err := openSource(inputPath)
	if err != nil {
		return fatal(err)
	}
	defer src.Close()

	first, err := src.Next()
	if err != nil {
		return fatal(fmt.Errorf("read first frame of %q: %w", inputPath, err))
	}
	srcW, srcH := src.Size()

	window, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     fmt.Sprintf("%s - %s", cfg.Window.Title, filepath.Base(inputPath)),
		Resizable: cfg.Window.Resizable,
		VSync:     cfg.Window.VSync,
	})
	if err != nil {
		return fatal(err)
	}
	defer window.Destroy()

	backend, err := opengl.NewBackend()
	if err != nil {
		return fatal(err)
	}

	sampling, err := cfg.InputSampling()
	if err != nil {
		return fatal(err)
	}
	input, err := renderer.NewInputTexture(backend, first, sampling)
	if err != nil {
		return fatal(err)
	}
	defer input.Release()

	spec, err := cfg.Spec(shaderDir, srcW, srcH)
	if err != nil {
		return fatal(err)
	}
	pipeline, err := renderer.NewPipeline(backend, spec)
	if err != nil {
		return fatal(err)
	}
	defer pipeline.Release()

	slog.Info("rendering", "input", inputPath, "size", fmt.Sprintf("%dx%d", srcW, srcH), "shaders", shaderDir)
	return fatal(renderer.Run(ctx, window, pipeline, src, input))
}

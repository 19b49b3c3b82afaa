// Command rpcheck opens a render path against the headless graphics server, renders a few
// frames and prints what the path did. It exits 1 when the path fails to open or render, so
// it can guard render path edits in CI.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Carmen-Shannon/oxy-renderpath/engine"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/camera"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/config"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/renderpath"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/scene"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// ExitError carries the process exit code of a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	// Use a quiet logger until the configured one is built.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	file    string
	cfg     config.Config
	frames  int
	timings bool
}

func parse(args []string, outW io.Writer) (*options, bool, error) {
	flagSet := flag.NewFlagSet("rpcheck", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	flagSet.Usage = func() {
		fmt.Fprint(outW, `
rpcheck - open and render a render path without a GPU.

Usage:
  rpcheck [options] [RENDER_PATH]

Arguments:
  RENDER_PATH
    The render path XML file. Defaults to render_path.file of the config.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "TOML configuration file.")
	strictFlag := flagSet.Bool("strict", false, "Validate every shader with the WGSL compiler.")
	framesFlag := flagSet.Int("frames", 1, "Number of frames to render.")
	shaderRootFlag := flagSet.String("shader-root", "", "Directory shader files are resolved against.")
	noShadowsFlag := flagSet.Bool("no-shadows", false, "Skip passes that require shadows.")
	timingsFlag := flagSet.Bool("timings", false, "Print per-pass timings.")
	logLevelFlag := flagSet.String("log-level", "", "Log level: debug, info, warn or error.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Open(*configFlag); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}
	if *strictFlag {
		cfg.RenderPath.Strict = true
	}
	if *shaderRootFlag != "" {
		cfg.RenderPath.ShaderRoot = *shaderRootFlag
	}
	if *noShadowsFlag {
		cfg.RenderPath.Shadows = false
	}
	if *logLevelFlag != "" {
		cfg.Log.Level = *logLevelFlag
		if _, err := cfg.Log.SlogLevel(); err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid log-level: %v", err)}
		}
	}
	if *framesFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "frames must not be negative"}
	}

	opts := &options{
		file:    cfg.RenderPath.File,
		cfg:     cfg,
		frames:  *framesFlag,
		timings: *timingsFlag,
	}
	if flagSet.NArg() > 0 {
		opts.file = flagSet.Arg(0)
	}
	if opts.file == "" {
		flagSet.Usage()
		return nil, true, nil
	}
	return opts, false, nil
}

func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg := opts.cfg
	logger := cfg.Log.NewLogger(os.Stderr)
	renderpath.SetLogger(logger)
	variable.SetLogger(logger)

	srv := headless.NewServer(
		headless.WithDisplaySize(cfg.Display.Width, cfg.Display.Height),
		headless.WithStrict(cfg.RenderPath.Strict),
	)
	reg := variable.NewRegistry()
	prof := profiler.NewProfiler(profiler.WithLogger(logger), profiler.WithUpdateInterval(time.Hour))

	rp := renderpath.New(
		renderpath.WithServer(srv),
		renderpath.WithRegistry(reg),
		renderpath.WithFilename(opts.file),
		renderpath.WithShaderRoot(cfg.RenderPath.ShaderRoot),
		renderpath.WithLogger(logger),
		renderpath.WithProfiler(prof),
		renderpath.WithPreloadWorkers(cfg.RenderPath.PreloadWorkers),
		renderpath.WithShadowsEnabled(cfg.RenderPath.Shadows),
	)
	if err := rp.Open(); err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("rpcheck: %v", err)}
	}

	cam := camera.NewCamera(camera.WithAspect(float32(cfg.Display.Width) / float32(cfg.Display.Height)))
	sc := scene.NewScene("rpcheck", cam, srv, scene.WithRegistry(reg))
	e := engine.NewEngine(
		engine.WithServer(srv),
		engine.WithRenderPath(rp),
		engine.WithScene(0, sc),
		engine.WithLogger(logger),
		engine.WithProfiler(prof),
	)
	defer e.Close()

	srv.ResetCalls()
	dt := float32(1.0 / 60)
	if cfg.Engine.TickRate > 0 {
		dt = float32(1 / cfg.Engine.TickRate)
	}
	for i := 0; i < opts.frames; i++ {
		if err := e.Frame(dt); err != nil {
			return &ExitError{Code: 1, Message: fmt.Sprintf("rpcheck: frame %d: %v", i, err)}
		}
	}

	printSummary(outW, rp, srv, opts.frames)
	if opts.timings {
		printTimings(outW, prof)
	}
	return nil
}

func printSummary(w io.Writer, rp renderpath.RenderPath, srv headless.Server, frames int) {
	passes := 0
	for i := 0; i < rp.NumSections(); i++ {
		passes += rp.Section(i).NumPasses()
	}
	fmt.Fprintf(w, "render path %q (%s)\n", rp.Name(), rp.Filename())
	fmt.Fprintf(w, "  sections: %d\n", rp.NumSections())
	fmt.Fprintf(w, "  passes: %d\n", passes)
	fmt.Fprintf(w, "  shaders: %d\n", rp.NumShaders())
	fmt.Fprintf(w, "  render targets: %d\n", rp.NumRenderTargets())
	fmt.Fprintf(w, "  frames: %d\n", frames)

	counts := make(map[string]int)
	for _, c := range srv.Calls() {
		counts[c.Op]++
	}
	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	fmt.Fprintln(w, "calls:")
	for _, op := range ops {
		fmt.Fprintf(w, "  %-16s %d\n", op, counts[op])
	}
}

func printTimings(w io.Writer, prof *profiler.Profiler) {
	fmt.Fprintln(w, "pass timings:")
	for _, st := range prof.Timers() {
		fmt.Fprintf(w, "  %-16s avg=%s count=%d\n", st.Name, st.Average, st.Count)
	}
}

package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/TFMV/forcegraph/config"
	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/ingest"
	"github.com/TFMV/forcegraph/physics"
	"github.com/TFMV/forcegraph/render"
	"github.com/TFMV/forcegraph/view"
	"github.com/TFMV/forcegraph/viewport"
)

// watchDelay collapses the burst of events an editor save produces.
const watchDelay = 150 * time.Millisecond

// renderJob is one input/output pair.
type renderJob struct {
	input   string
	format  string // input format; empty detects from the extension
	output  string // "-" writes to stdout
	backend render.Kind
}

func (c *CLI) renderCommand() *cobra.Command {
	var (
		output string
		format string
		watch  bool
	)
	defaults := physics.DefaultConfig()
	ropts := render.NewDefaultOptions()

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Lay out a graph file and write an SVG or PNG",
		Long: `Render lays out the graph in FILE until the simulation comes to rest and
writes the final frame. The input format is detected from the extension
(json, yaml, toml, csv) unless --format is given. The backend follows the
output extension unless --backend is given.`,
		Example: `  forcegraph render deps.json -o deps.svg
  forcegraph render edges.csv -o edges.png --dpr 2
  forcegraph render graph.yaml -o graph.svg --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			job := renderJob{
				input:   args[0],
				format:  format,
				output:  output,
				backend: cfg.BackendKind(),
			}
			if job.output == "" {
				job.output = defaultOutput(job.input, job.backend)
			}
			if !cmd.Flags().Changed("backend") {
				if kind, ok := kindForOutput(job.output); ok {
					job.backend = kind
				}
			}
			if watch {
				return c.watch(cmd.Context(), cfg, job, cmd.OutOrStdout())
			}
			return c.renderOnce(cmd.Context(), cfg, job, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file, - for stdout (default FILE with .svg or .png)")
	f.StringVarP(&format, "format", "f", "", "input format: json, yaml, toml, csv")
	f.BoolVarP(&watch, "watch", "w", false, "re-render whenever FILE changes")
	f.String("backend", string(render.KindRetained), "render backend: svg (retained) or png (immediate)")
	f.Float64("width", 960, "output width in logical pixels")
	f.Float64("height", 600, "output height in logical pixels")
	f.Float64("dpr", 1, "device pixel ratio for png output")
	f.Float64("font-size", ropts.FontSize, "label font size")
	f.String("node-shape", string(ropts.NodeShape), "png node shape: rect or circle")
	f.Bool("edge-labels", ropts.EdgeLabels, "draw edge labels")
	f.Float64("link-distance", defaults.LinkDistance, "target distance between linked nodes")
	f.Float64("charge", defaults.Charge, "many-body strength; negative repels")
	f.Int64("seed", defaults.Seed, "seed for initial placement noise")
	f.Int("max-ticks", view.DefaultOptions().MaxTicks, "stop after this many ticks even if not at rest")
	f.Bool("directed", true, "group parallel edges by direction")
	return cmd
}

// renderOnce lays out job.input and writes the final frame.
func (c *CLI) renderOnce(ctx context.Context, cfg *config.Config, job renderJob, stdout io.Writer) error {
	start := time.Now()
	doc, err := ingest.LoadFile(job.input, job.format)
	if err != nil {
		return err
	}

	backend, err := render.New(job.backend, cfg.RenderOptions(c.Logger))
	if err != nil {
		return err
	}
	defer backend.Teardown()

	res, err := view.Settle(ctx, doc, backend, cfg.Viewport(), cfg.ViewOptions(c.Logger, nil))
	if err != nil {
		return err
	}
	if n := errors.Count(res.Rejected, errors.ErrCodeInvalidEdge); n > 0 {
		c.Logger.Warn("skipped edges with unknown endpoints", "count", n)
	}
	if !res.AtRest {
		c.Logger.Warn("layout stopped before coming to rest", "ticks", res.Ticks)
	}

	if err := writeOutput(job.output, backend, stdout); err != nil {
		return err
	}
	c.Logger.Info("rendered",
		"input", job.input,
		"output", job.output,
		"backend", job.backend,
		"nodes", len(res.Document.Nodes),
		"ticks", res.Ticks,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// writeOutput encodes into a temporary file next to path and renames it, so
// watchers of the output never see a partial frame.
func writeOutput(path string, backend render.Backend, stdout io.Writer) error {
	if path == "-" {
		return backend.Encode(stdout)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create output")
	}
	defer os.Remove(tmp.Name())

	if err := backend.Encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write output")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write %s", path)
	}
	return nil
}

// watch renders once, then again after every change to job.input until ctx
// is cancelled. The directory is watched rather than the file so editors
// that save by rename keep triggering.
func (c *CLI) watch(ctx context.Context, cfg *config.Config, job renderJob, stdout io.Writer) error {
	if job.output == "-" {
		return errors.New(errors.ErrCodeInvalidInput, "--watch needs an output file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to start watcher")
	}
	defer watcher.Close()

	target, err := filepath.Abs(job.input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad input path")
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrap(errors.ErrCodeNotFound, err, "failed to watch %s", job.input)
	}

	loop := eventloop.New(0)
	go loop.Run(ctx)
	defer loop.Close()

	rerender := viewport.NewDebouncer(loop, watchDelay, func() {
		if err := c.renderOnce(ctx, cfg, job, stdout); err != nil {
			c.Logger.Error("render failed", "input", job.input, "err", err)
		}
	})
	loop.Post(rerender.Schedule)
	c.Logger.Info("watching", "input", job.input)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.Logger.Debug("input changed", "op", ev.Op.String())
			loop.Post(rerender.Schedule)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		}
	}
}

// defaultOutput replaces the input extension with the backend's.
func defaultOutput(input string, kind render.Kind) string {
	ext := ".svg"
	if kind == render.KindImmediate {
		ext = ".png"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func kindForOutput(path string) (render.Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return render.KindRetained, true
	case ".png":
		return render.KindImmediate, true
	}
	return "", false
}

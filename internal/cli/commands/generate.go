package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/bootseq/internal/cli/output"
	"github.com/leapstack-labs/bootseq/internal/device"
	"github.com/leapstack-labs/bootseq/internal/emit"
	"github.com/leapstack-labs/bootseq/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const watchDebounce = 100 * time.Millisecond

type generateOptions struct {
	outDir   string
	watch    bool
	noRecord bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate [model.yaml...]",
		Aliases: []string{"gen"},
		Short:   "Generate the bring-up sequence for application models",
		Long: `Build the pre-init bring-up sequence for one or more application models.

Models default to the models listed in bootseq.yaml, or app.yaml in the
project root. Several models are built concurrently; output keeps the
order given on the command line.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown format (agent-friendly)
  - --output json: JSON
  - --output go: Go source calling the runtime primitives`,
		Example: `  # Generate for app.yaml in the project root
  bootseq generate

  # Generate Go source into a directory
  bootseq generate app.yaml --output go --out-dir gen

  # Regenerate whenever the model changes
  bootseq generate app.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Write one file per model into this directory")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate when a model or the device file changes")
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "Do not record builds in the history database")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, opts *generateOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	paths := c.modelPaths(args)

	err := c.generate(ctx, paths, opts)
	if !opts.watch {
		return err
	}
	if err != nil {
		c.Renderer.Error(err.Error())
	}
	return c.watch(ctx, c.watchFiles(paths), func() error {
		return c.generate(ctx, paths, opts)
	})
}

// generate builds every model, records the builds and writes the results.
func (c *CommandContext) generate(ctx context.Context, paths []string, opts *generateOptions) error {
	dev, err := c.loadDevice()
	if err != nil {
		return err
	}

	results, err := c.buildAll(ctx, paths, dev)
	if err != nil {
		return err
	}

	if !opts.noRecord {
		c.record(results)
	}

	format := emitFormat(c.Renderer.EffectiveMode())
	if opts.outDir != "" {
		return c.writeFiles(opts.outDir, results, format)
	}
	for i, res := range results {
		if i > 0 && format != emit.FormatJSON {
			c.Renderer.Println("")
		}
		if err := c.emit(c.Renderer.Writer(), res, format); err != nil {
			return err
		}
	}
	return nil
}

// buildAll builds the models concurrently, keeping input order.
func (c *CommandContext) buildAll(ctx context.Context, paths []string, dev *device.Device) ([]*buildResult, error) {
	results := make([]*buildResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.build(path, dev)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// record stores each build and warns when a sequence changed although its
// model and configuration did not. History failures never fail generation.
func (c *CommandContext) record(results []*buildResult) {
	store, err := c.openStore()
	if err != nil {
		c.Logger.Warn("build history unavailable", "path", c.Cfg.StatePath, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	variant := c.variant()
	for _, res := range results {
		b := &state.Build{
			App:          res.Sequence.App,
			ModelPath:    res.Model.Path,
			ModelHash:    res.Model.Hash,
			Variant:      variant,
			PriorityBits: res.Sequence.PriorityBits,
			StepCount:    len(res.Sequence.Steps),
			Fingerprint:  res.Sequence.Fingerprint(),
		}

		reg, err := store.Check(b)
		if err != nil {
			c.Logger.Warn("failed to compare with previous build", "app", b.App, "error", err)
		} else if reg != nil {
			c.Logger.Warn("sequence changed for an unchanged model",
				"app", b.App,
				"variant", b.Variant,
				"previous", reg.Previous.Fingerprint,
				"current", b.Fingerprint,
				"previous_build", reg.Previous.ID)
		}

		if err := store.Record(b); err != nil {
			c.Logger.Warn("failed to record build", "app", b.App, "error", err)
		}
	}
}

func (c *CommandContext) emit(w io.Writer, res *buildResult, format emit.Format) error {
	if format == emit.FormatGo {
		return emit.GoSource(w, res.Sequence, emit.GoOptions{
			Package: c.Cfg.Go.Package,
			Runtime: c.Cfg.Go.Runtime,
			Func:    c.Cfg.Go.Func,
		})
	}
	return emit.Write(w, res.Sequence, format)
}

func (c *CommandContext) writeFiles(dir string, results []*buildResult, format emit.Format) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, res := range results {
		path := filepath.Join(dir, outputFileName(res.Sequence.App, format))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = c.emit(f, res, format)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		c.Renderer.Success(fmt.Sprintf("%s: %s (%d steps)", res.Sequence.App, path, len(res.Sequence.Steps)))
	}
	return nil
}

func outputFileName(app string, format emit.Format) string {
	switch format {
	case emit.FormatGo:
		return app + "_preinit.go"
	case emit.FormatJSON:
		return app + ".json"
	case emit.FormatMarkdown:
		return app + ".md"
	default:
		return app + ".txt"
	}
}

func emitFormat(mode output.Mode) emit.Format {
	switch mode {
	case output.ModeJSON:
		return emit.FormatJSON
	case output.ModeMarkdown:
		return emit.FormatMarkdown
	case output.ModeGo:
		return emit.FormatGo
	default:
		return emit.FormatText
	}
}

// watchFiles returns the absolute paths whose changes trigger a rebuild.
func (c *CommandContext) watchFiles(paths []string) []string {
	files := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			files = append(files, abs)
		}
	}
	if c.Cfg.Device.SVD != "" {
		if abs, err := filepath.Abs(c.Cfg.Device.SVD); err == nil {
			files = append(files, abs)
		}
	}
	return files
}

// watch calls regen after any of files is written or replaced, until ctx is
// done. Directories are watched so that editors replacing files are seen.
func (c *CommandContext) watch(ctx context.Context, files []string, regen func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		watched[filepath.Clean(f)] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	c.Logger.Info("watching for changes", "files", len(watched))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c.Logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := regen(); err != nil {
				c.Renderer.Error(err.Error())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/fsnotify/fsnotify"

	umledit "github.com/alnah/go-umledit"
)

// defaultDebounce coalesces the burst of events editors emit per save.
const defaultDebounce = 300 * time.Millisecond

// watchFlags holds flags for the watch command.
type watchFlags struct {
	common   commonFlags
	renderer rendererFlags
	format   string
	output   string
	debounce time.Duration
}

// watchFlagSet registers the watch flags on a new FlagSet.
func watchFlagSet(f *watchFlags) *flag.FlagSet {
	fs := newFlagSet("watch")

	fs.StringVarP(&f.format, "format", "f", string(umledit.DefaultFormat), "output format")
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: next to the input)")
	fs.DurationVar(&f.debounce, "debounce", defaultDebounce, "quiet period before re-rendering")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	return fs
}

func parseWatchFlags(args []string, env *Environment) (*watchFlags, []string, error) {
	f := &watchFlags{}
	fs := watchFlagSet(f)
	rest, err := parseFlagSet(fs, args, printWatchUsage, env)
	return f, rest, err
}

// runWatch renders a file, then re-renders it after every change until
// interrupted. Render failures are reported and watching continues.
func runWatch(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseWatchFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) != 1 || rest[0] == stdinArg {
		return fmt.Errorf("%w: watch needs exactly one input file", ErrUsage)
	}
	if flags.debounce <= 0 {
		flags.debounce = defaultDebounce
	}

	format, err := umledit.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	a, err := setup(&flags.common, &flags.renderer, nil, env)
	if err != nil {
		return err
	}
	r, err := a.renderer(format)
	if err != nil {
		return err
	}

	target := renderTarget{InputPath: rest[0], OutputPath: outputPathFor(rest[0], flags.output, format)}
	render := func(ctx context.Context) {
		res := renderOne(ctx, r, target, format, env)
		if res.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", res.InputPath, res.Err, hintFor(res.Err))
			return
		}
		fmt.Fprintln(env.Stdout, res.OutputPath)
	}

	render(ctx)
	a.logger.Info("watching", "file", target.InputPath, "output", target.OutputPath)
	return watchFile(ctx, target.InputPath, flags.debounce, render, a.logger)
}

// watchFile calls onChange once per burst of writes to path. The parent
// directory is watched so editors that save by rename are seen too.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func(context.Context), logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("%w: watching %s: %w", ErrReadInput, filepath.Dir(abs), err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}

		case <-fire:
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func printWatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit watch <file> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a markup file, then render it again whenever it is saved.")
	fmt.Fprintln(w, "Stop with Ctrl+C.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --format <s>          Output format (default png)")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "      --debounce <d>        Quiet period before re-rendering (default 300ms)")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
)

// renderFlags holds flags for the render command.
type renderFlags struct {
	common   commonFlags
	renderer rendererFlags
	format   string
	output   string
	workers  int
}

// renderTarget is a single input to process.
type renderTarget struct {
	InputPath  string
	OutputPath string // empty: leave the artifact in the work directory
}

// RenderResult holds the outcome of a single render.
type RenderResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// renderFlagSet registers the render flags on a new FlagSet.
func renderFlagSet(f *renderFlags) *flag.FlagSet {
	fs := newFlagSet("render")

	fs.StringVarP(&f.format, "format", "f", string(umledit.DefaultFormat), "output format: png, svg, pdf, eps, txt")
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: next to each input)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	return fs
}

func parseRenderFlags(args []string, env *Environment) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := renderFlagSet(f)
	rest, err := parseFlagSet(fs, args, printRenderUsage, env)
	return f, rest, err
}

// runRender renders each input file and prints the artifact paths.
func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, inputs, err := parseRenderFlags(args, env)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: render needs at least one input file (or - for stdin)", ErrUsage)
	}

	format, err := umledit.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	a, err := setup(&flags.common, &flags.renderer, nil, env)
	if err != nil {
		return err
	}
	if flags.workers > 0 {
		a.cfg.Renderer.Workers = flags.workers
	}
	factory, err := a.rendererFactory(format)
	if err != nil {
		return err
	}

	targets := make([]renderTarget, len(inputs))
	for i, in := range inputs {
		targets[i] = renderTarget{InputPath: in}
		if in != stdinArg {
			targets[i].OutputPath = outputPathFor(in, flags.output, format)
		}
	}

	pool := umledit.NewRendererPool(umledit.ResolvePoolSize(a.cfg.Renderer.Workers), factory)
	defer func() { _ = pool.Close() }()
	a.logger.Debug("rendering", "files", len(targets), "workers", pool.Size(), "format", format)

	results := renderBatch(ctx, pool, targets, format, env)
	failed := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if failed > 0 {
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("%d of %d renders failed: %w", failed, len(results), firstError(results))
	}
	return nil
}

// renderBatch processes targets concurrently using the renderer pool.
func renderBatch(ctx context.Context, pool *umledit.RendererPool, targets []renderTarget, format umledit.Format, env *Environment) []RenderResult {
	if len(targets) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(targets))

	results := make([]RenderResult, len(targets))
	var wg sync.WaitGroup
	jobs := make(chan int, len(targets))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := pool.Acquire()
			defer pool.Release(r)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = RenderResult{
						InputPath: targets[idx].InputPath,
						Err:       ctx.Err(),
					}
					continue
				}
				results[idx] = renderOne(ctx, r, targets[idx], format, env)
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// renderOne reads, renders, and delivers a single target.
func renderOne(ctx context.Context, r *umledit.Renderer, t renderTarget, format umledit.Format, env *Environment) RenderResult {
	start := time.Now()
	result := RenderResult{InputPath: t.InputPath, OutputPath: t.OutputPath}
	finish := func(err error) RenderResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if t.OutputPath != "" && samePath(t.InputPath, t.OutputPath) {
		return finish(fmt.Errorf("%w: output would overwrite %s", ErrUsage, t.InputPath))
	}

	markup, err := readInput(t.InputPath, env)
	if err != nil {
		return finish(err)
	}

	if t.OutputPath == "" {
		artifact, err := r.Render(ctx, markup, format)
		result.OutputPath = artifact
		return finish(err)
	}

	artifact, err := r.Export(ctx, markup, format)
	if err != nil {
		return finish(err)
	}
	return finish(deliver(artifact, t.OutputPath))
}

// printResults reports each result and returns the failure count.
func printResults(results []RenderResult, quiet, verbose bool, env *Environment) int {
	var succeeded, failed int

	for _, r := range results {
		if r.Err != nil {
			failed++
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
			}
			continue
		}

		succeeded++
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintln(env.Stdout, r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stderr, "%d succeeded, %d failed\n", succeeded, failed)
	}

	return failed
}

// firstError returns the first failure in input order.
func firstError(results []RenderResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit render <file>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render diagram markup files. Each artifact is written next to its input")
	fmt.Fprintln(w, "(or into --output) and its path printed. Use - to read stdin; the")
	fmt.Fprintln(w, "artifact then stays in the work directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --format <s>          Output format: png, svg, pdf, eps, txt (default png)")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}

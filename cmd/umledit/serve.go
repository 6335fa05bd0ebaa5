package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common    commonFlags
	renderer  rendererFlags
	assistant assistantFlags
	addr      string
	workers   int
}

// serveFlagSet registers the serve flags on a new FlagSet.
func serveFlagSet(f *serveFlags) *flag.FlagSet {
	fs := newFlagSet("serve")

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default 127.0.0.1:8080)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	addAssistantFlags(fs, &f.assistant)
	return fs
}

func parseServeFlags(args []string, env *Environment) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := serveFlagSet(f)
	rest, err := parseFlagSet(fs, args, printServeUsage, env)
	return f, rest, err
}

// runServe runs the HTTP API until the context is cancelled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseServeFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrUsage)
	}

	a, err := setup(&flags.common, &flags.renderer, &flags.assistant, env)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		a.cfg.Server.Addr = flags.addr
	}
	if flags.workers > 0 {
		a.cfg.Renderer.Workers = flags.workers
	}

	srv := a.newServer()
	if srv.renderers != nil {
		defer func() { _ = srv.renderers.Close() }()
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Server.Addr, err)
	}
	return serveUntilDone(ctx, ln, srv.routes(), a, env)
}

// newServer wires the API handlers. A missing renderer does not prevent
// startup; render requests then fail with its error.
func (a *app) newServer() *server {
	srv := &server{
		store:     a.templateStore(),
		assistant: a.assistant(),
		conv:      umledit.NewConversation(),
		apiKey:    a.apiKey,
		logger:    a.logger,
	}
	if _, err := a.resolveJar(); err != nil {
		a.logger.Warn("only txt rendering available", "error", err)
		srv.renderErr = err
	}
	// Cannot fail for txt; without a jar the pool serves txt only.
	factory, _ := a.rendererFactory(umledit.FormatTXT)
	srv.renderers = umledit.NewRendererPool(umledit.ResolvePoolSize(a.cfg.Renderer.Workers), factory)
	return srv
}

// serveUntilDone serves on ln and shuts down gracefully on cancellation.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, a *app, env *Environment) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	a.logger.Info("listening", "addr", ln.Addr().String())
	fmt.Fprintf(env.Stdout, "umledit API on http://%s\n", ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the local JSON API for editor front-ends:")
	fmt.Fprintln(w, "  GET    /api/health")
	fmt.Fprintln(w, "  GET    /api/templates             PUT/DELETE /api/templates/{name}")
	fmt.Fprintln(w, "  GET    /api/templates/{name}      POST /api/templates/reset")
	fmt.Fprintln(w, "  POST   /api/render?format=png     body: markup")
	fmt.Fprintln(w, "  POST   /api/assist                body: {\"prompt\": \"...\"}")
	fmt.Fprintln(w, "  DELETE /api/assist                forget the conversation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default 127.0.0.1:8080)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w, "      --endpoint <url>      Chat-completion URL")
	fmt.Fprintln(w, "      --model <s>           Model name")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}

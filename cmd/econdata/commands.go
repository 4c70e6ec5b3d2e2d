package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/econdata/internal/app"
	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/platform"
	"github.com/bobmcallan/econdata/internal/server"
)

// commands returns every econdata subcommand writing to out.
func commands(out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&fetchCmd{out: out},
		&metaCmd{out: out},
		&urlCmd{out: out},
		&transferCmd{out: out},
		&serveCmd{},
		&versionCmd{out: out},
	}
}

// openApp builds the App from the -config flag.
var openApp = func() (*app.App, error) {
	return app.NewApp(*configPath)
}

func failf(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// fetchCmd implements "fetch".
type fetchCmd struct {
	out         io.Writer
	store       string
	policy      string
	keepMissing bool
	asJSON      bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetches series through the cache" }
func (*fetchCmd) Usage() string {
	return `fetch [-store CODE] [-policy NAME] [-keep-missing] [-json] TICKER...:

Fetches each ticker from the selected store, calling the provider when the
series is not cached or the update policy asks for a refresh.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store code (default: DEFAULT)")
	f.StringVar(&c.policy, "policy", "", "update policy (default: DEFAULT)")
	f.BoolVar(&c.keepMissing, "keep-missing", false, "keep missing observations on a first fetch")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		return failf("%v", err)
	}
	defer a.Close()

	opts := platform.FetchOptions{Store: c.store, Policy: c.policy, KeepMissing: c.keepMissing}
	status := subcommands.ExitSuccess
	for _, ticker := range f.Args() {
		ser, err := a.Platform.Fetch(ctx, ticker, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = subcommands.ExitFailure
			continue
		}
		if err := writeSeries(c.out, ser, c.asJSON); err != nil {
			return failf("%v", err)
		}
	}
	return status
}

func writeSeries(w io.Writer, ser models.Series, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ser)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s\n", ser.Ticker)
	for _, o := range ser.Observations {
		value := "NaN"
		if o.Value.Valid {
			value = fmt.Sprintf("%g", o.Value.Float64)
		}
		fmt.Fprintf(tw, "%s\t%s\n", o.Date.Format(time.DateOnly), value)
	}
	return tw.Flush()
}

// metaCmd implements "meta".
type metaCmd struct {
	out   io.Writer
	store string
}

func (*metaCmd) Name() string     { return "meta" }
func (*metaCmd) Synopsis() string { return "prints the stored record for a ticker" }
func (*metaCmd) Usage() string {
	return `meta [-store CODE] TICKER:

Resolves a full, local or datatype ticker against a store without fetching.
`
}

func (c *metaCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store code (default: DEFAULT)")
}

func (c *metaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		return failf("%v", err)
	}
	defer a.Close()

	rec, err := a.Platform.Metadata(ctx, f.Arg(0), c.store)
	if err != nil {
		return failf("%v", err)
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return failf("%v", err)
	}
	return subcommands.ExitSuccess
}

// urlCmd implements "url".
type urlCmd struct {
	out   io.Writer
	store string
}

func (*urlCmd) Name() string     { return "url" }
func (*urlCmd) Synopsis() string { return "prints the provider web page for a ticker" }
func (*urlCmd) Usage() string {
	return `url [-store CODE] TICKER:
`
}

func (c *urlCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store code (default: DEFAULT)")
}

func (c *urlCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		return failf("%v", err)
	}
	defer a.Close()

	u, err := a.Platform.SeriesURL(ctx, f.Arg(0), c.store)
	if err != nil {
		return failf("%v", err)
	}
	fmt.Fprintln(c.out, u)
	return subcommands.ExitSuccess
}

// transferCmd implements "transfer".
type transferCmd struct {
	out      io.Writer
	from, to string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "copies stored series between stores" }
func (*transferCmd) Usage() string {
	return `transfer -from CODE -to CODE FULL_TICKER...:

Copies each series with its metadata. The destination keeps its own
refresh stamps.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "source store code")
	f.StringVar(&c.to, "to", "", "destination store code")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 || c.from == "" || c.to == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		return failf("%v", err)
	}
	defer a.Close()

	for _, ticker := range f.Args() {
		if err := a.Platform.Transfer(ctx, ticker, c.from, c.to); err != nil {
			return failf("%v", err)
		}
		fmt.Fprintf(c.out, "%s: %s -> %s\n", ticker, c.from, c.to)
	}
	return subcommands.ExitSuccess
}

// serveCmd implements "serve".
type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "runs the REST API server" }
func (*serveCmd) Usage() string {
	return `serve:

Serves /api/series, /api/metadata, /api/url and /api/transfer until
interrupted.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		return failf("failed to initialize app: %v", err)
	}
	defer a.Close()

	common.PrintBanner(os.Stdout, a.Config, a.Logger)

	srv := server.NewServer(a)
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		a.Logger.Info().Msg("Shutdown signal received")
	case err := <-errChan:
		a.Logger.Error().Err(err).Msg("HTTP server failed")
		return subcommands.ExitFailure
	}

	common.PrintShutdownBanner(os.Stdout, a.Logger)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Logger.Info().Msg("Server stopped")
	return subcommands.ExitSuccess
}

// versionCmd implements "version".
type versionCmd struct {
	out io.Writer
}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "prints build information" }
func (*versionCmd) Usage() string          { return "version:\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (c *versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Fprintf(c.out, "econdata %s\n", common.GetFullVersion())
	return subcommands.ExitSuccess
}

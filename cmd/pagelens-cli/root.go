package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/config"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/registry"
	"github.com/use-agent/pagelens/runner"
)

// app holds what every subcommand needs, built once per invocation.
type app struct {
	cfg    *config.Config
	runner *runner.Runner
}

func newApp(noWhois bool) (*app, error) {
	cfg := config.Load()

	f := fetcher.New(fetcher.Options{
		Timeout:      cfg.Fetcher.Timeout,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
		MaxRedirects: cfg.Fetcher.MaxRedirects,
		UserAgent:    cfg.Fetcher.UserAgent,
		Fingerprint:  cfg.Fetcher.TLSFingerprint,
	})
	deps := analyzer.Deps{Fetcher: f, ProbeTimeout: cfg.Fetcher.ProbeTimeout}
	var capabilities []string
	if cfg.Whois.Enabled && !noWhois {
		deps.Whois = analyzer.NewNetWhois(cfg.Whois.Timeout)
		capabilities = append(capabilities, analyzer.CapabilityWhois)
	}

	reg, err := registry.Default(deps)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return &app{cfg: cfg, runner: runner.New(reg, f, capabilities...)}, nil
}

func newRootCmd() *cobra.Command {
	var (
		noWhois bool
		verbose bool
		a       *app
	)

	root := &cobra.Command{
		Use:           "pagelens-cli",
		Short:         "Run pagelens SEO and content tools from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			var err error
			a, err = newApp(noWhois)
			return err
		},
	}
	root.PersistentFlags().BoolVar(&noWhois, "no-whois", false, "disable WHOIS lookups (domain-age reports the dependency as unavailable)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	get := func() *app { return a }
	root.AddCommand(newToolsCmd(get), newRunCmd(get), newBulkCmd(get))
	return root
}

// parseFields turns repeated key=value flags into a field map.
func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", p)
		}
		fields[k] = v
	}
	return fields, nil
}

func writef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagelens/bulk"
	"github.com/use-agent/pagelens/models"
)

func newBulkCmd(get func() *app) *cobra.Command {
	var (
		csvPath    string
		outPath    string
		workers    int
		fieldFlags []string
	)

	cmd := &cobra.Command{
		Use:   "bulk <tool> --csv urls.csv",
		Short: "Run one tool over every URL in a CSV file",
		Long: "Reads a CSV with a 'url' column, runs the tool once per row and writes the\n" +
			"sheet back with one column per result field plus status, message and error.\n" +
			"Ctrl-C stops starting new rows; rows not started are marked skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			tool, err := a.runner.Registry().Resolve(args[0])
			if err != nil {
				return err
			}
			desc := tool.Descriptor
			if desc.InputKind == models.InputRawText {
				return fmt.Errorf("%s does not take a URL", desc.ID)
			}
			shared, err := parseFields(fieldFlags)
			if err != nil {
				return err
			}

			in, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			table, err := bulk.ReadCSV(in)
			in.Close()
			if err != nil {
				return err
			}
			urls := table.URLs()

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Bulk.Workers
			}
			pacer := bulk.NewHostPacer(a.cfg.Bulk.HostRPS, 10*time.Minute)
			defer pacer.Stop()
			r := bulk.NewRunner(a.runner, workers, pacer)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			progress := cmd.ErrOrStderr()
			var mu sync.Mutex
			done := 0
			summary := r.Run(ctx, desc, urls, shared, func(i int, item *models.BulkItem) {
				mu.Lock()
				defer mu.Unlock()
				done++
				writef(progress, "[%d/%d] %s %s\n", done, len(urls), formatStatusWithColor(string(item.Result.Status)), item.URL)
			})

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := bulk.WriteCSV(out, table, summary.Items); err != nil {
				return err
			}

			status := summary.Status(ctx.Err() != nil && summary.Skipped > 0)
			writef(progress, "%s: %d ok, %d failed, %d skipped\n",
				formatStatusWithColor(status), summary.Completed, summary.Failed, summary.Skipped)
			if status == models.JobFailed {
				return errToolFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "input CSV with a url column (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV (default stdout)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "parallel workers (1-10)")
	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "shared compound field as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

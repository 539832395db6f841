package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/runner"
)

// errToolFailed makes the process exit non-zero after an Error record has
// been printed.
var errToolFailed = errors.New("tool run failed")

func newRunCmd(get func() *app) *cobra.Command {
	var (
		fieldFlags []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "run <tool> [input]",
		Short: "Run one tool against a URL or text",
		Long: "Run one tool. URL tools take the page URL as input, text tools take the text.\n" +
			"Compound tools take --field name=value flags or the legacy 'A|||B' form.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			toolID := args[0]
			if slices.Contains(a.cfg.Tools.Disabled, toolID) {
				return fmt.Errorf("tool %q is disabled", toolID)
			}

			fields, err := parseFields(fieldFlags)
			if err != nil {
				return err
			}
			p := models.Payload{Fields: fields}
			if len(args) == 2 {
				p.Input = args[1]
			}

			rec := a.runner.Execute(cmd.Context(), toolID, p)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rec); err != nil {
					return err
				}
			} else {
				printRecord(cmd.OutOrStdout(), rec)
			}

			if !rec.OK() {
				if rec.ErrorCode() == models.ErrCodeInvalidInput {
					if tool, err := a.runner.Registry().Resolve(toolID); err == nil && tool.Descriptor.InputKind == models.InputCompound {
						writef(cmd.ErrOrStderr(), "%s\n", runner.Guidance(tool.Descriptor))
					}
				}
				return errToolFailed
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "compound field as name=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result record as JSON")
	return cmd
}

// printRecord renders a record as "key: value" lines under a status header.
func printRecord(w io.Writer, rec *models.ResultRecord) {
	writef(w, "%s  %s\n", formatStatusWithColor(string(rec.Status)), rec.Message)
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		writef(w, "  %s: %s\n", colorInfo(k), render(v))
	}
}

func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(string(b))
	}
}

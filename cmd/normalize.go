package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/satriahrh/interviewer/internal/gedcom"
	"github.com/satriahrh/interviewer/internal/gedcomx"
)

type normalizeOptions struct {
	uuid   bool
	format string
	indent bool
}

func newNormalizeCmd() *cobra.Command {
	opts := &normalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize extracted records to GedcomX",
		Long: `Reads extraction output (a record, a list of records or a {"records": [...]} wrapper)
from a file or stdin and prints the normalized records as a JSON list or as GEDCOM.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runNormalize(in, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.uuid, "uuid", false, "generate UUIDs for persons without an id")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json or gedcom")
	cmd.Flags().BoolVar(&opts.indent, "indent", true, "indent JSON output")
	return cmd
}

func runNormalize(in io.Reader, out io.Writer, opts *normalizeOptions) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	payload, err := gedcomx.DecodeRawPayload(data)
	if err != nil {
		return err
	}

	var normalizerOpts []gedcomx.Option
	if opts.uuid {
		normalizerOpts = append(normalizerOpts, gedcomx.WithIDGenerator(gedcomx.UUIDGenerator))
	}
	records := gedcomx.NewNormalizer(normalizerOpts...).Normalize(payload.Records)

	switch opts.format {
	case "gedcom":
		return gedcom.Encode(out, records)
	case "json":
		enc := json.NewEncoder(out)
		if opts.indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(gedcomx.ListPayload(records))
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

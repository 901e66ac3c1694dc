package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan"
	"github.com/calvinalkan/triagescan/internal/config"
	"github.com/calvinalkan/triagescan/internal/export"
)

func newScanCommand(flags *globalFlags) *cobra.Command {
	var (
		format string
		output string
		record bool
	)

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Collect matching files below a directory",
		Long: `Walk <root> depth-first and list every regular file whose extension is
allowed and whose size is within bounds.

Symbolic links inside the tree are not followed. A symbolic link given as
<root> is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("format") {
				s.cfg.OutputFormat = format
				if err := s.cfg.Validate(); err != nil {
					return err
				}
			}

			return runScan(cmd, s, args[0], output, record)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", config.FormatText, "output format: text, json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&record, "record", false, "record the scan in the catalog")

	return cmd
}

func runScan(cmd *cobra.Command, s *settings, root, output string, record bool) error {
	started := time.Now()
	set := triagescan.Scan(root, s.cfg.ScanOptions(s.log)...)
	finished := time.Now()

	defer set.Release()

	s.log.Info("scan complete", "root", root, "files", set.Len(), "elapsed", finished.Sub(started).Round(time.Millisecond))

	report := export.NewReport(root, started, set)

	if record {
		store, err := s.openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.RecordScan(cmd.Context(), root, started, finished, set)
		if err != nil {
			return fmt.Errorf("record scan: %w", err)
		}

		report.ScanID = rec.ID
		s.log.Info("scan recorded", "id", rec.ID, "catalog", store.Path())
	}

	format := s.cfg.OutputFormat

	if output != "" {
		if format == config.FormatText {
			format = config.FormatJSON
		}

		if err := export.WriteFile(cmd.Context(), output, report, format); err != nil {
			return err
		}

		s.log.Info("report written", "path", output, "format", format)

		return nil
	}

	if format == config.FormatText {
		return writeText(cmd.OutOrStdout(), report)
	}

	return export.Write(cmd.OutOrStdout(), report, format)
}

func writeText(w io.Writer, r *export.Report) error {
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "%10d  %s\n", f.Size, f.Path); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	summary := color.New(color.FgGreen)
	if r.Count == 0 {
		summary = color.New(color.FgYellow)
	}

	if _, err := summary.Fprintf(w, "%d file(s) collected under %s\n", r.Count, r.Root); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if r.ScanID != "" {
		if _, err := fmt.Fprintf(w, "recorded as %s\n", r.ScanID); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	return nil
}

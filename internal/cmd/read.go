package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan"
	"github.com/calvinalkan/triagescan/internal/filelock"
)

// ErrNoContent is returned when a file yields no content.
var ErrNoContent = errors.New("no content")

func newReadCommand(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Print the whole content of one file",
		Long: `Read <path> in full and write its raw bytes to stdout (or --output).

Empty files, files over the size ceiling, non-regular files and unreadable
files produce no content and a non-zero exit status. The extension
allow-list does not apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			path := args[0]

			c := triagescan.ReadFile(path, s.cfg.ScanOptions(s.log)...)
			if c == nil {
				return fmt.Errorf("%s: %w", path, ErrNoContent)
			}
			defer c.Release()

			if c.Short() {
				s.log.Warn("file shrank while reading", "path", path, "expected", c.StatSize(), "read", c.Len())
			}

			if output != "" {
				return filelock.WriteLocked(cmd.Context(), output, c.Bytes())
			}

			if _, err := cmd.OutOrStdout().Write(c.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the content to this file instead of stdout")

	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan/internal/bridge"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve scan and read requests as JSON lines on stdin/stdout",
		Long: `Read one JSON request per line from stdin and answer each with one JSON
line on stdout.

  {"id":1,"op":"scan","root":"/case"}
  {"id":2,"op":"read_file","path":"/case/a.db"}
  {"id":3,"op":"release_paths","handle":"...","count":12}
  {"id":4,"op":"release_content","handle":"..."}

Request lines longer than 1 MiB are answered with an error and skipped.
Results stay alive until released. Anything unreleased at end of input is
released and reported on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			session := bridge.NewSession(s.log, s.cfg.ScanOptions(s.log)...)
			defer session.Close()

			return bridge.Serve(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan/internal/catalog"
)

func newCatalogCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query recorded scans",
	}

	// withStore resolves settings and opens the catalog around fn.
	withStore := func(fn func(cmd *cobra.Command, store *catalog.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			store, err := s.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			return fn(cmd, store, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scans",
		Short: "List recorded scans, newest first",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *catalog.Store, _ []string) error {
			scans, err := store.ListScans(cmd.Context())
			if err != nil {
				return err
			}

			return printScans(cmd.OutOrStdout(), scans)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "files <scan-id>",
		Short: "List the files of one scan (an unambiguous id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *catalog.Store, args []string) error {
			id, err := store.ResolveScanID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			files, err := store.FilesForScan(cmd.Context(), id)
			if err != nil {
				return err
			}

			return printFiles(cmd.OutOrStdout(), files)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "package <name>",
		Short: "List every recorded file attributed to a package",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *catalog.Store, args []string) error {
			files, err := store.FilesByPackage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printFiles(cmd.OutOrStdout(), files)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "packages",
		Short: "List attributed packages by file count",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *catalog.Store, _ []string) error {
			pkgs, err := store.Packages(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range pkgs {
				fmt.Fprintf(tw, "%d\t%s\n", p.Files, p.Package)
			}

			return tw.Flush()
		}),
	})

	return cmd
}

func printScans(w io.Writer, scans []catalog.Scan) error {
	if len(scans) == 0 {
		_, err := color.New(color.FgYellow).Fprintln(w, "no scans recorded")

		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tFILES\tROOT")

	for _, sc := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sc.ID, sc.StartedAt.Local().Format(time.DateTime), sc.FileCount, sc.Root)
	}

	return tw.Flush()
}

func printFiles(w io.Writer, files []catalog.File) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, f := range files {
		pkg := f.Package
		if pkg == "" {
			pkg = "-"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\n", f.Size, pkg, f.Path)
	}

	return tw.Flush()
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan/internal/catalog"
	"github.com/calvinalkan/triagescan/internal/config"
	"github.com/calvinalkan/triagescan/internal/logger"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	logLevel    string
	extensions  []string
	maxSize     int64
	maxDepth    int
	catalogPath string
}

// NewRootCommand creates and returns the root cobra command for triagescan
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "triagescan",
		Short: "Collect forensically interesting files from a directory tree",
		Long: `triagescan walks a directory tree and collects regular files whose
extension is on an allow-list (databases, logs, plists, JSON/XML, Redis
dumps) and whose size is within bounds. Collected paths can be exported,
recorded in a local catalog, or read back whole.

Unreadable directories and files are skipped, never fatal.`,
		Version:      Version,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", ".triagescan/config.yaml", "path to the YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringSliceVar(&flags.extensions, "ext", nil, "allowed extension (repeatable, replaces the configured list)")
	pf.Int64Var(&flags.maxSize, "max-size", 0, "size ceiling in bytes")
	pf.IntVar(&flags.maxDepth, "max-depth", 0, "maximum directory depth below the root (0 = unbounded)")
	pf.StringVar(&flags.catalogPath, "catalog", "", "path to the scan catalog database")

	cmd.AddCommand(newScanCommand(flags))
	cmd.AddCommand(newReadCommand(flags))
	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newCatalogCommand(flags))

	return cmd
}

// settings is the resolved configuration of one invocation.
type settings struct {
	cfg *config.Config
	log *slog.Logger
}

// resolve loads the config file and applies explicitly set flags on top.
func (f *globalFlags) resolve(cmd *cobra.Command) (*settings, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()

	if pf.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if pf.Changed("ext") {
		cfg.Extensions = f.extensions
	}

	if pf.Changed("max-size") {
		cfg.MaxFileSize = f.maxSize
	}

	if pf.Changed("max-depth") {
		cfg.MaxDepth = f.maxDepth
	}

	if pf.Changed("catalog") {
		cfg.CatalogPath = f.catalogPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings{
		cfg: cfg,
		log: logger.New(cmd.ErrOrStderr(), cfg.LogLevel),
	}, nil
}

func (s *settings) openCatalog() (*catalog.Store, error) {
	store, err := catalog.NewStore(s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", s.cfg.CatalogPath, err)
	}

	return store, nil
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asad/azurefs/internal/config"
	"github.com/asad/azurefs/internal/driver"
	"github.com/asad/azurefs/internal/filesystem"
	"github.com/asad/azurefs/internal/logging"
)

// Version is stamped at release with
// -ldflags "-X github.com/asad/azurefs/internal/cli.Version=v1.2.3".
var Version = "dev"

// globalOptions are the persistent flags shared by every command. Empty
// values fall back to the environment configuration.
type globalOptions struct {
	configFile string
	disk       string
	logLevel   string
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "azurefs",
		Short: "Azure Blob Storage as a filesystem",
		Long: `azurefs exposes an Azure Blob Storage container through a small
filesystem interface: read, write, list, copy, move and sign links to files.

Disks are declared in a YAML file (default azurefs.yaml, or $AZUREFS_CONFIG).
The azure-local driver stores blobs on the local disk for development.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "disks file (default $AZUREFS_CONFIG or azurefs.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.disk, "disk", "", "disk name (default: the file's default, then $AZUREFS_DISK)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")

	rootCmd.AddCommand(
		newListCmd(opts),
		newCatCmd(opts),
		newPutCmd(opts),
		newRemoveCmd(opts),
		newCopyCmd(opts),
		newMoveCmd(opts),
		newStatCmd(opts),
		newExistsCmd(opts),
		newURLCmd(opts),
		newPresignCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "azurefs version %s\n", Version)
		},
	}
}

// Execute is the entry point for the CLI. It should be called from main.go.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// environment resolves the process configuration with flag overrides.
func (o *globalOptions) environment() (*config.Config, error) {
	cfg := config.Load()
	if o.configFile != "" {
		cfg.DisksFile = o.configFile
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session is what a file command needs: the resolved disk and a logger.
type session struct {
	cfg    *config.Config
	disk   *filesystem.Disk
	logger logging.Logger
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// open loads configuration and builds the selected disk.
func (o *globalOptions) open(ctx context.Context) (*session, error) {
	cfg, err := o.environment()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	disks, err := config.LoadDisks(cfg.DisksFile)
	if err != nil {
		return nil, err
	}

	disk, err := driver.Default(cfg.DataDir).Open(ctx, disks, o.disk, cfg.DefaultDisk, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, disk: disk, logger: logger}, nil
}

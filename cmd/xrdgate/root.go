package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/adapter/local"
	"github.com/Ning0612/xrdgate/internal/config"
	"github.com/Ning0612/xrdgate/internal/logger"
	"github.com/Ning0612/xrdgate/internal/service"
)

// app holds what every subcommand needs once the root command has run
type app struct {
	configPath string
	logLevel   string
	localRoot  string

	cfg    *config.Config
	plugin *service.Plugin
}

// run executes the command line args and releases everything setup acquired
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if terr := a.teardown(); err == nil {
		err = terr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "xrdgate",
		Short:         "XRootD third-party copy and file access",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: search ./config.yaml, ~/.xrdgate)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&a.localRoot, "local-root", "", "serve root:// paths from this local directory instead of a server")

	root.AddCommand(
		newCopyCmd(a),
		newBulkCopyCmd(a),
		newStatCmd(a),
		newLsCmd(a),
		newMkdirCmd(a),
		newRmCmd(a),
		newRmdirCmd(a),
		newMvCmd(a),
		newChmodCmd(a),
		newAccessCmd(a),
		newChecksumCmd(a),
		newCatCmd(a),
		newPutCmd(a),
	)
	return root
}

func (a *app) setup() error {
	// .env is optional; variables already set win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: cannot load .env: %v\n", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Log.LoggerConfig()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var fs adapter.FileSystem
	if a.localRoot != "" {
		fs, err = local.New(a.localRoot)
		if err != nil {
			return fmt.Errorf("local root %s: %w", a.localRoot, err)
		}
	}

	a.plugin, err = service.NewFromConfig(cfg, fs)
	return err
}

func (a *app) teardown() error {
	var err error
	if a.plugin != nil {
		err = a.plugin.Shutdown()
		a.plugin = nil
	}
	if a.cfg != nil {
		logger.Shutdown()
		a.cfg = nil
	}
	return err
}

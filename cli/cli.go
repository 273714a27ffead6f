// Package cli implements bptctl, a command line front end for a B+ tree
// page file.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-bpt/config"
	"go-bpt/util/logger"
)

type app struct {
	configFile string
	dbFile     string

	cfg *config.AppConfig
	log *logrus.Logger
}

// NewRootCmd builds the command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bptctl",
		Short:         "Inspect and modify a B+ tree page file",
		Long:          "bptctl stores byte records under uint32 keys in a disk-backed B+ tree.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.dbFile, "db", "", "page file, overrides storage.path")

	root.AddCommand(
		a.initCmd(),
		a.putCmd(),
		a.getCmd(),
		a.delCmd(),
		a.scanCmd(),
		a.heightCmd(),
		a.verifyCmd(),
		a.loadCmd(),
		a.dumpCmd(),
		a.statsCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg := config.New()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.dbFile != "" {
		cfg.Storage.Path = a.dbFile
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

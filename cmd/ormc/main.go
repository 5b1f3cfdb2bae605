//go:build !wasm

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/tinywasm/ormbase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "ormc",
		Short:         "Generates record type registrations from model.go files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLogLevel(logger.LogLevelVerbose)
			}
			o := ormbase.NewOrmc(
				ormbase.WithRootDir(rootDir),
				ormbase.WithOrmcLog(func(messages ...any) {
					logger.Info(messages...)
				}),
			)
			if logger.IsVerbose() {
				logger.Verbose("scanning", o.RootDir())
			}
			if err := o.Run(); err != nil {
				logger.Error("ormc:", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rootDir, "root", ".", "Directory to scan for model.go and models.go")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

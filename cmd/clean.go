// =============================================================================
// Invoice Automation - Clean Command
// =============================================================================
//
// COMMAND USAGE:
//   invoice clean --older-than 720h
//
// Removes archived inputs and outputs older than the given age.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/invoice-automation/pkg/utils"
	"github.com/spf13/cobra"
)

var olderThan time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old archived files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean()
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove archived files older than this")
}

func runClean() error {
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	mainConfig, err := loadMainConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir} {
		removed, err := utils.CleanOldArchives(dir, olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("%s: removed %d file(s)\n", dir, removed)
	}
	return nil
}

// =============================================================================
// Invoice Automation - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   invoice validate [--file path]
//
// Loads the main configuration and every profile, compiles header patterns
// and synonym tables, and prints what each profile will do. With --file it
// also reports which profile would handle that file.
//
// =============================================================================

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration files without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Show which profile matches this file")
}

func runValidate() error {
	mainConfig, err := loadMainConfig()
	if err != nil {
		return err
	}

	fmt.Println("Main configuration OK")
	fmt.Printf("  Input:        %s\n", mainConfig.InputDir)
	fmt.Printf("  Output:       %s\n", mainConfig.OutputDir)
	fmt.Printf("  Formats:      %s\n", strings.Join(mainConfig.OutputFormats, ", "))
	fmt.Printf("  Concurrency:  %d\n\n", mainConfig.MaxConcurrency)

	profiles, err := config.LoadProfiles(mainConfig.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		p := profiles[code]
		fmt.Printf("Profile %s (%s)\n", p.ProfileCode, p.ProfileName)
		if p.Source != "" {
			fmt.Printf("  Source:       %s\n", p.Source)
		}
		fmt.Printf("  Files:        %s\n", strings.Join(p.FileMatchingPatterns, ", "))
		fmt.Printf("  Header:       %s (%dx%d)\n", p.Header.Pattern, p.Header.SearchRows, p.Header.SearchCols)
		fmt.Printf("  Synonyms:     %d across %d field(s)\n", p.HeaderIndex().Len(), len(p.HeaderIndex().Fields()))
		fmt.Printf("  Distribute:   %v by %s\n", p.Distribution.Fields, p.Distribution.Basis)
		fmt.Printf("  FOB:          %d per line\n", p.FOB.ChunkSize)
		for _, c := range p.SynonymConflicts() {
			fmt.Printf("  WARNING:      %s\n", c.String())
		}
		fmt.Println()
	}

	if validateFile != "" {
		p, err := config.SelectProfile(validateFile, profiles, "")
		if err != nil {
			return err
		}
		fmt.Printf("%s -> profile %s\n", validateFile, p.ProfileCode)
	}

	return nil
}

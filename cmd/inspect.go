// =============================================================================
// Invoice Automation - Inspect Command
// =============================================================================
//
// COMMAND USAGE:
//   invoice inspect headers --file JF-0001.xlsx [--profile code] [--sheet name]
//   invoice inspect footer  --file JF-0001.xlsx [--profile code] [--sheet name]
//
// Diagnostic views of a workbook: which rows the profile treats as table
// headers and how their columns map, or where the totals footer sits.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/converter"
	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxparser"
	"github.com/spf13/cobra"
)

var (
	inspectFile    string
	inspectProfile string
	inspectSheet   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how a workbook is read",
}

var inspectHeadersCmd = &cobra.Command{
	Use:   "headers",
	Short: "List header rows and their column mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspectHeaders()
	},
}

var inspectFooterCmd = &cobra.Command{
	Use:   "footer",
	Short: "Locate the totals footer row",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspectFooter()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.AddCommand(inspectHeadersCmd, inspectFooterCmd)

	inspectCmd.PersistentFlags().StringVar(&inspectFile, "file", "", "Workbook to inspect (required)")
	inspectCmd.PersistentFlags().StringVar(&inspectProfile, "profile", "", "Profile code (default: match by file name)")
	inspectCmd.PersistentFlags().StringVar(&inspectSheet, "sheet", "", "Worksheet name (default: profile setting)")
	inspectCmd.MarkPersistentFlagRequired("file")
}

// openInspected resolves the profile and reads the worksheet.
func openInspected() (*config.ProfileConfig, types.Grid, error) {
	mainConfig, err := loadMainConfig()
	if err != nil {
		return nil, nil, err
	}
	profiles, err := config.LoadProfiles(mainConfig.ConfigsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	profile, err := config.SelectProfile(inspectFile, profiles, inspectProfile)
	if err != nil {
		return nil, nil, err
	}

	sel := profile.Sheet
	if inspectSheet != "" {
		sel = xlsxparser.SheetSelector{Name: inspectSheet}
	}
	grid, err := converter.OpenGrid(inspectFile, profile, sel)
	if err != nil {
		return nil, nil, err
	}
	return profile, grid, nil
}

func runInspectHeaders() error {
	profile, grid, err := openInspected()
	if err != nil {
		return err
	}

	fmt.Printf("Sheet %q: %d row(s), %d column(s), profile %s\n", grid.Name(), grid.MaxRow(), grid.MaxCol(), profile.ProfileCode)

	h := profile.Header
	rows := sheet.FindHeaderRows(grid, profile.HeaderPattern(), h.SearchRows, h.SearchCols)
	if len(rows) == 0 {
		return fmt.Errorf("%w (searched %dx%d for %q)", sheet.ErrNoHeaderRows, h.SearchRows, h.SearchCols, h.Pattern)
	}

	logger := quietLogger()
	for i, row := range rows {
		mapping := sheet.MapColumns(grid, row, h.SearchCols, profile.HeaderIndex(), nil, logger)
		fmt.Printf("\nTable %d: header row %d\n", i+1, row)
		for _, f := range sheet.OrderedFields(mapping) {
			col := mapping[f]
			fmt.Printf("  %-22s column %-3d %q\n", f, col, grid.Cell(row, col).String())
		}

		var missing []string
		for _, f := range profile.RequiredFields {
			if _, ok := mapping[f]; !ok {
				missing = append(missing, string(f))
			}
		}
		if len(missing) > 0 {
			fmt.Printf("  missing required: %s\n", strings.Join(missing, ", "))
		}
	}
	return nil
}

func runInspectFooter() error {
	profile, grid, err := openInspected()
	if err != nil {
		return err
	}

	ft := profile.Footer
	row, ok := sheet.FindFooterRow(grid, ft.Keywords, ft.StartRow, ft.SearchCols)
	if !ok {
		fmt.Printf("No footer row found (keywords %v from row %d)\n", ft.Keywords, ft.StartRow)
		return nil
	}

	fmt.Printf("Footer row %d:\n", row)
	for i, v := range sheet.RowValues(grid, row) {
		if v.IsBlank() {
			continue
		}
		fmt.Printf("  column %-3d %s\n", i+1, v.String())
	}
	return nil
}

// =============================================================================
// Invoice Automation - Render Command
// =============================================================================
//
// COMMAND USAGE:
//   invoice render --input report.json --output out.xlsx [--profile code]
//   invoice render --input report.json --output out.xlsx \
//       --template invoice.xlsx --sheet Invoice --at-row 12
//   invoice render --input report.json --output out.xml
//
// Re-renders a JSON report written by 'process'. The output format follows
// the output extension. With --template the tables are inserted into a copy
// of an existing workbook, pushing its content below them.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/report"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-automation/internal/xmlwriter"
	"github.com/spf13/cobra"
)

var (
	renderInput    string
	renderOutput   string
	renderProfile  string
	renderTemplate string
	renderSheet    string
	renderAtRow    int
	renderTables   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a JSON report as XLSX or XML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender()
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderInput, "input", "", "JSON report to render (required)")
	renderCmd.Flags().StringVar(&renderOutput, "output", "", "Output file, .xlsx or .xml (required)")
	renderCmd.Flags().StringVar(&renderProfile, "profile", "", "Profile whose render layout to use")
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Existing workbook to insert the tables into")
	renderCmd.Flags().StringVar(&renderSheet, "sheet", "", "Template worksheet (default: first sheet)")
	renderCmd.Flags().IntVar(&renderAtRow, "at-row", 1, "Template row where the first table starts")
	renderCmd.Flags().BoolVar(&renderTables, "include-tables", false, "Include processed tables in XML output")
	renderCmd.MarkFlagRequired("input")
	renderCmd.MarkFlagRequired("output")
}

func runRender() error {
	mainConfig, err := loadMainConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(mainConfig)
	if err != nil {
		return err
	}
	defer closeLog()

	rep, err := report.ReadJSON(renderInput)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(renderOutput)) {
	case ".xml":
		opts := xmlwriter.DefaultGenerateOptions()
		opts.IncludeTables = renderTables
		if err := xmlwriter.WriteFile(rep, renderOutput, opts); err != nil {
			return err
		}

	case ".xlsx", ".xlsm":
		layout, err := renderLayout(mainConfig)
		if err != nil {
			return err
		}

		if renderTemplate == "" {
			if err := xlsxwriter.RenderReport(rep, layout, renderOutput, logger); err != nil {
				return err
			}
			break
		}

		data, err := os.ReadFile(renderTemplate)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		if err := os.WriteFile(renderOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to copy template: %w", err)
		}
		if err := xlsxwriter.AppendToWorkbook(renderOutput, renderSheet, renderAtRow, rep, layout, logger); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(renderOutput))
	}

	fmt.Printf("Rendered %d table(s) to %s\n", len(rep.ProcessedTables), renderOutput)
	return nil
}

// renderLayout returns the layout of the named profile, or the default.
func renderLayout(mainConfig *config.MainConfig) (xlsxwriter.Layout, error) {
	if renderProfile == "" {
		return xlsxwriter.DefaultLayout(), nil
	}
	profiles, err := config.LoadProfiles(mainConfig.ConfigsDir)
	if err != nil {
		return xlsxwriter.Layout{}, fmt.Errorf("failed to load profiles: %w", err)
	}
	p, ok := profiles[renderProfile]
	if !ok {
		return xlsxwriter.Layout{}, fmt.Errorf("%w: profile %q is not defined", config.ErrNoProfile, renderProfile)
	}
	return p.Render, nil
}

// =============================================================================
// Invoice Automation - Main Entry Point
// =============================================================================
//
// USAGE:
//   invoice process       - Process every workbook in the input directory
//   invoice validate      - Validate configuration files without processing
//   invoice render        - Re-render a JSON report as XLSX or XML
//   invoice inspect       - Show header rows, column mapping or footer of a workbook
//   invoice clean         - Remove old archived files
//   invoice version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core pipeline (not for external import)
//   - pkg/           : Shared file utilities
//   - configs/       : Per-supplier sheet profiles (YAML or HJSON)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoice-automation/cmd"
)

func main() {
	cmd.Execute()
}

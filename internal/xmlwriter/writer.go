// =============================================================================
// Invoice Automation - XML Writer Module
// =============================================================================
//
// Generates an XML rendition of a run report for downstream systems that
// import shipment summaries as XML rather than JSON.
//
// XML STRUCTURE:
//
//   <invoiceSummary workbook="JF-0001.xlsx" worksheet="Packing" mode="custom">
//     <fob>
//       <combinedPO>PO1\PO2</combinedPO>
//       <combinedItem>A\B</combinedItem>
//       <combinedDescription>Cow leather</combinedDescription>
//       <totalSqft>27</totalSqft>
//       <totalAmount>35.5</totalAmount>
//     </fob>
//     <lines>
//       <line n="1" key="PO1|A|1.5">
//         <po>PO1</po>
//         <item>A</item>
//         <sqftSum>15</sqftSum>
//         <amountSum>22.5</amountSum>
//       </line>
//     </lines>
//     <tables>                           <!-- only with IncludeTables -->
//       <table id="1">
//         <row n="1"><cell field="po">PO1</cell>...</row>
//       </table>
//     </tables>
//   </invoiceSummary>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/report"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the root element.
	// Default: "invoiceSummary"
	RootElement string

	// IncludeTables adds every processed table cell to the document.
	// Default: false
	IncludeTables bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "invoiceSummary",
	}
}

// =============================================================================
// XML DOCUMENT STRUCTURES
// =============================================================================

type xmlDocument struct {
	XMLName   xml.Name
	Workbook  string     `xml:"workbook,attr"`
	Worksheet string     `xml:"worksheet,attr"`
	Mode      string     `xml:"mode,attr"`
	RunID     string     `xml:"runId,attr,omitempty"`
	FOB       xmlFOB     `xml:"fob"`
	Lines     []xmlLine  `xml:"lines>line"`
	Tables    *xmlTables `xml:"tables,omitempty"`
}

type xmlTables struct {
	Table []xmlTable `xml:"table"`
}

type xmlFOB struct {
	CombinedPO          string `xml:"combinedPO"`
	CombinedItem        string `xml:"combinedItem"`
	CombinedDescription string `xml:"combinedDescription,omitempty"`
	TotalSqft           string `xml:"totalSqft"`
	TotalAmount         string `xml:"totalAmount"`
}

type xmlLine struct {
	N           int    `xml:"n,attr"`
	Key         string `xml:"key,attr"`
	PO          string `xml:"po"`
	Item        string `xml:"item"`
	Price       string `xml:"price,omitempty"`
	Description string `xml:"description,omitempty"`
	SqftSum     string `xml:"sqftSum"`
	AmountSum   string `xml:"amountSum"`
}

type xmlTable struct {
	ID   string   `xml:"id,attr"`
	Rows []xmlRow `xml:"row"`
}

type xmlRow struct {
	N     int       `xml:"n,attr"`
	Cells []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Field string `xml:"field,attr"`
	Value string `xml:",chardata"`
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from a report with default options.
func Generate(rep *report.Report) ([]byte, error) {
	return GenerateWithOptions(rep, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML document with custom options.
//
// GENERATION PROCESS:
//   1. Copy run metadata onto the root element
//   2. Add the FOB summary
//   3. Add one <line> per aggregation key, numbered from 1 in key order
//   4. Optionally add every processed table
//   5. Marshal with indentation
func GenerateWithOptions(rep *report.Report, options GenerateOptions) ([]byte, error) {
	if options.RootElement == "" {
		options.RootElement = "invoiceSummary"
	}

	doc := xmlDocument{
		XMLName:   xml.Name{Local: options.RootElement},
		Workbook:  rep.Metadata.WorkbookFilename,
		Worksheet: rep.Metadata.WorksheetName,
		Mode:      rep.Metadata.AggregationModeUsed,
		RunID:     rep.Metadata.RunID,
		FOB: xmlFOB{
			CombinedPO:          rep.FOB.CombinedPO,
			CombinedItem:        rep.FOB.CombinedItem,
			CombinedDescription: rep.FOB.CombinedDescription,
			TotalSqft:           rep.FOB.TotalSqft,
			TotalAmount:         rep.FOB.TotalAmount,
		},
	}

	withPrice := rep.Metadata.AggregationModeUsed != "custom"
	for i, key := range rep.AggregationKeys() {
		line := rep.Aggregation[key]
		doc.Lines = append(doc.Lines, splitKey(i+1, key, withPrice, line))
	}

	// A nil pointer drops the <tables> element entirely.
	if options.IncludeTables {
		doc.Tables = &xmlTables{}
		for _, id := range rep.TableIDs() {
			doc.Tables.Table = append(doc.Tables.Table, buildTable(id, rep.ProcessedTables[id]))
		}
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	body, err := xml.MarshalIndent(doc, "", options.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	buffer.Write(body)
	buffer.WriteString("\n")

	return buffer.Bytes(), nil
}

// splitKey breaks a "|"-joined aggregation key back into its parts.
func splitKey(n int, key string, withPrice bool, line report.AggregationLine) xmlLine {
	parts := strings.Split(key, "|")
	out := xmlLine{N: n, Key: key, SqftSum: line.SqftSum, AmountSum: line.AmountSum}

	next := func() string {
		if len(parts) == 0 {
			return ""
		}
		p := parts[0]
		parts = parts[1:]
		return p
	}

	out.PO = next()
	out.Item = next()
	if withPrice {
		out.Price = next()
	}
	out.Description = next()
	return out
}

// buildTable converts one processed table to row-major XML.
func buildTable(id string, cols report.TableColumns) xmlTable {
	fields := make([]string, 0, len(cols))
	rows := 0
	for f, values := range cols {
		fields = append(fields, f)
		rows = max(rows, len(values))
	}
	sort.Strings(fields)

	table := xmlTable{ID: id}
	for r := 0; r < rows; r++ {
		row := xmlRow{N: r + 1}
		for _, f := range fields {
			values := cols[f]
			if r >= len(values) || values[r] == nil {
				continue
			}
			row.Cells = append(row.Cells, xmlCell{Field: f, Value: *values[r]})
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// WriteFile generates the XML document and writes it to path.
func WriteFile(rep *report.Report, path string, options GenerateOptions) error {
	data, err := GenerateWithOptions(rep, options)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write XML file: %w", err)
	}
	return nil
}

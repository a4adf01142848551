// =============================================================================
// Invoice Automation - Run Report
// =============================================================================
//
// The report is the persisted result of one workbook run: every processed
// table column, the aggregation map and the FOB summary. It is written as
// JSON (the machine-readable record) and feeds the XML export and the
// spreadsheet renderer.
//
// JSON LAYOUT:
//
//   {
//     "metadata": { "workbook_filename": ..., "worksheet_name": ..., ... },
//     "processed_tables_data": { "1": { "po": ["PO1", null], "net": ["100.0000", "0"] } },
//     "distribution_flags":    { "1": { "net": ["share", "zero_filled"] } },
//     "initial_aggregation_input_to_fob": { "PO1|A|1.5": { "sqft_sum": "15", "amount_sum": "22.5" } },
//     "final_fob_compounded_result": { "combined_po": ..., "total_amount": "35.5" }
//   }
//
//   Decimals are serialized as strings so no precision is lost; blank cells
//   are null.
//
// =============================================================================

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ginjaninja78/invoice-automation/internal/aggregate"
	"github.com/ginjaninja78/invoice-automation/internal/numeric"
	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// =============================================================================
// REPORT STRUCTURES
// =============================================================================

// Metadata describes the run that produced a report.
type Metadata struct {
	RunID               string    `json:"run_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	Profile             string    `json:"profile,omitempty"`
	WorkbookFilename    string    `json:"workbook_filename"`
	WorksheetName       string    `json:"worksheet_name"`
	AggregationModeUsed string    `json:"aggregation_mode_used"`
	FOBChunkSize        int       `json:"fob_chunk_size"`
	FOBIntraSeparator   string    `json:"fob_intra_separator"`
	FOBInterSeparator   string    `json:"fob_inter_separator"`
}

// TableColumns maps a canonical field name to its column values. A nil
// entry is a blank cell.
type TableColumns map[string][]*string

// AggregationLine is one entry of the aggregation map.
type AggregationLine struct {
	SqftSum      string   `json:"sqft_sum"`
	AmountSum    string   `json:"amount_sum"`
	Rows         int      `json:"rows"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// FOBSummary is the compounded shipment record.
type FOBSummary struct {
	CombinedPO          string `json:"combined_po"`
	CombinedItem        string `json:"combined_item"`
	CombinedDescription string `json:"combined_description"`
	TotalSqft           string `json:"total_sqft"`
	TotalAmount         string `json:"total_amount"`
}

// Report is the complete output of one workbook run.
type Report struct {
	Metadata          Metadata                       `json:"metadata"`
	ProcessedTables   map[string]TableColumns        `json:"processed_tables_data"`
	DistributionFlags map[string]map[string][]string `json:"distribution_flags,omitempty"`
	Aggregation       map[string]AggregationLine     `json:"initial_aggregation_input_to_fob"`
	FOB               FOBSummary                     `json:"final_fob_compounded_result"`
}

// =============================================================================
// BUILDING
// =============================================================================

// Build assembles a report from the pipeline's results.
//
// PARAMETERS:
//   - meta: Run metadata; FOB options and mode are filled in from agg/fobOpts.
//   - tables: The processed tables, in sheet order.
//   - agg: The aggregator the tables were folded into.
//   - fobOpts: The options Compound was called with.
//   - fob: The compounded result.
func Build(meta Metadata, tables []*types.Table, agg *aggregate.Aggregator, fobOpts aggregate.FOBOptions, fob aggregate.FOBResult) *Report {
	meta.AggregationModeUsed = string(agg.Mode())
	meta.FOBChunkSize = fobOpts.ChunkSize
	meta.FOBIntraSeparator = fobOpts.ItemSeparator
	meta.FOBInterSeparator = fobOpts.ChunkSeparator

	rep := &Report{
		Metadata:          meta,
		ProcessedTables:   make(map[string]TableColumns, len(tables)),
		DistributionFlags: make(map[string]map[string][]string),
		Aggregation:       make(map[string]AggregationLine, agg.Len()),
		FOB: FOBSummary{
			CombinedPO:          fob.CombinedPO,
			CombinedItem:        fob.CombinedItem,
			CombinedDescription: fob.CombinedDescription,
			TotalSqft:           numeric.Exact(fob.TotalSqft),
			TotalAmount:         numeric.Exact(fob.TotalAmount),
		},
	}

	for _, t := range tables {
		id := strconv.Itoa(t.Index)
		rep.ProcessedTables[id] = tableColumns(t)

		if len(t.Flags) > 0 {
			flags := make(map[string][]string, len(t.Flags))
			for field, fl := range t.Flags {
				names := make([]string, len(fl))
				for i, f := range fl {
					names[i] = f.String()
				}
				flags[string(field)] = names
			}
			rep.DistributionFlags[id] = flags
		}
	}

	withDesc := agg.Options().KeyIncludesDescription
	records := agg.Records()
	for _, k := range aggregate.SortedKeys(records) {
		r := records[k]
		rep.Aggregation[k.String(agg.Mode(), withDesc)] = AggregationLine{
			SqftSum:      numeric.Exact(r.SqftSum),
			AmountSum:    numeric.Exact(r.AmountSum),
			Rows:         r.Rows,
			Descriptions: r.Descriptions,
		}
	}

	return rep
}

// tableColumns converts a table's columns to their serialized form.
func tableColumns(t *types.Table) TableColumns {
	out := make(TableColumns, len(t.Columns))
	for field, col := range t.Columns {
		cells := make([]*string, len(col))
		for i, v := range col {
			if v.IsBlank() {
				continue
			}
			s := v.String()
			cells[i] = &s
		}
		out[string(field)] = cells
	}
	return out
}

// TableIDs returns the processed table ids in numeric order.
func (r *Report) TableIDs() []string {
	ids := make([]string, 0, len(r.ProcessedTables))
	for id := range r.ProcessedTables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return ids
}

// AggregationKeys returns the aggregation keys in sorted order.
func (r *Report) AggregationKeys() []string {
	keys := make([]string, 0, len(r.Aggregation))
	for k := range r.Aggregation {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// FILE I/O
// =============================================================================

// Marshal encodes the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes the report to path.
func WriteJSON(r *Report, path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if r.ProcessedTables == nil {
		r.ProcessedTables = make(map[string]TableColumns)
	}
	return &r, nil
}

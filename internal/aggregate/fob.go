package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FOBOptions controls how the unique PO, Item and Description lists are
// packed into printable strings.
type FOBOptions struct {
	ChunkSize      int
	ItemSeparator  string
	ChunkSeparator string
}

// DefaultFOBOptions packs two values per line joined by a backslash.
func DefaultFOBOptions() FOBOptions {
	return FOBOptions{ChunkSize: 2, ItemSeparator: "\\", ChunkSeparator: "\n"}
}

// FOBResult is the single summary record of a shipment.
type FOBResult struct {
	CombinedPO          string
	CombinedItem        string
	CombinedDescription string
	TotalSqft           decimal.Decimal
	TotalAmount         decimal.Decimal
}

// Compound reduces an aggregation map to one FOB record: sorted unique POs,
// Items and Descriptions packed with FormatChunks, plus grand totals. An
// empty map yields empty strings and zero totals.
func Compound(records map[Key]Record, opts FOBOptions) FOBResult {
	res := FOBResult{TotalSqft: decimal.Zero, TotalAmount: decimal.Zero}

	pos := make(map[string]struct{})
	items := make(map[string]struct{})
	descs := make(map[string]struct{})

	for k, r := range records {
		pos[orSentinel(k.PO, MissingPO)] = struct{}{}
		items[orSentinel(k.Item, MissingItem)] = struct{}{}
		if k.Description != "" {
			descs[k.Description] = struct{}{}
		}
		for _, d := range r.Descriptions {
			descs[d] = struct{}{}
		}
		res.TotalSqft = res.TotalSqft.Add(r.SqftSum)
		res.TotalAmount = res.TotalAmount.Add(r.AmountSum)
	}

	res.CombinedPO = FormatChunks(sortedSet(pos), opts.ChunkSize, opts.ItemSeparator, opts.ChunkSeparator)
	res.CombinedItem = FormatChunks(sortedSet(items), opts.ChunkSize, opts.ItemSeparator, opts.ChunkSeparator)
	res.CombinedDescription = FormatChunks(sortedSet(descs), opts.ChunkSize, opts.ItemSeparator, opts.ChunkSeparator)

	return res
}

// FormatChunks splits values into groups of size, joins each group with
// itemSep and joins the groups with chunkSep. A size below one puts every
// value in a single group.
//
// EXAMPLE:
//   FormatChunks([A B C D E], 2, `\`, "\n") == "A\\B\nC\\D\nE"
func FormatChunks(values []string, size int, itemSep, chunkSep string) string {
	if len(values) == 0 {
		return ""
	}
	if size < 1 {
		size = len(values)
	}

	chunks := make([]string, 0, (len(values)+size-1)/size)
	for i := 0; i < len(values); i += size {
		end := min(i+size, len(values))
		chunks = append(chunks, strings.Join(values[i:end], itemSep))
	}
	return strings.Join(chunks, chunkSep)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func orSentinel(s, sentinel string) string {
	if s == "" {
		return sentinel
	}
	return s
}

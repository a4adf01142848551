package config

import (
	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// DefaultHeaderPattern identifies the header row of a packing-list table.
const DefaultHeaderPattern = `批次号|订单号|物料代码|总张数|净重|毛重`

// DefaultHeaderMap returns the built-in synonym table. Order matters: earlier
// entries keep a synonym claimed twice.
func DefaultHeaderMap() []sheet.HeaderEntry {
	return []sheet.HeaderEntry{
		{Field: types.FieldPO, Synonyms: []string{"po", "po no", "purchase order", "订单号"}},
		{Field: types.FieldItem, Synonyms: []string{"item", "item no", "料号", "产品编号", "物料代码"}},
		{Field: types.FieldPCS, Synonyms: []string{"pcs", "张数", "数量", "qty", "件数", "总张数"}},
		{Field: types.FieldNet, Synonyms: []string{"net", "net wt", "net weight", "净重"}},
		{Field: types.FieldGross, Synonyms: []string{"gross", "gross wt", "gross weight", "毛重"}},
		{Field: types.FieldUnit, Synonyms: []string{"unit", "unit price", "单价", "价格", "usd"}},
		{Field: types.FieldSqft, Synonyms: []string{"sqft", "出货数量 (sf)"}},
		{Field: types.FieldCBM, Synonyms: []string{"cbm", "meas", "measurement", "材积", "量码版"}},
		{Field: types.FieldDesc, Synonyms: []string{"desc", "description", "品名规格"}},
		{Field: types.FieldInvNo, Synonyms: []string{"inv no", "invoice no", "发票号码"}},
		{Field: types.FieldInvDate, Synonyms: []string{"inv date", "invoice date", "发票日期"}},
		{Field: types.FieldBatchNo, Synonyms: []string{"批次号", "batch number"}},
		{Field: types.FieldLineNo, Synonyms: []string{"行号", "line number", "line no"}},
		{Field: types.FieldDirection, Synonyms: []string{"内向", "direction", "inward"}},
		{Field: types.FieldProductionDate, Synonyms: []string{"生产日期", "production date"}},
		{Field: types.FieldProductionOrderNo, Synonyms: []string{"生产单号", "production order number"}},
		{Field: types.FieldReferenceCode, Synonyms: []string{"jlf/ttx编号", "ttx编号", "reference code"}},
		{Field: types.FieldLevel, Synonyms: []string{"级别", "等级", "level", "grade"}},
		{Field: types.FieldPalletCount, Synonyms: []string{"拖数", "pallet count"}},
		{Field: types.FieldManualNo, Synonyms: []string{"手册号", "manual number"}},
		{Field: types.FieldRemarks, Synonyms: []string{"备注", "remarks", "notes"}},
		{Field: types.FieldAmount, Synonyms: []string{"金额", "amount"}},
	}
}

// defaultSettings holds the fallback values applyProfileDefaults draws from.
func defaultSettings() ProfileConfig {
	return ProfileConfig{
		Header: HeaderSettings{
			Pattern:    DefaultHeaderPattern,
			SearchRows: 25,
			SearchCols: 25,
		},
		Extraction: ExtractionSettings{
			StopField: types.FieldItem,
			MaxRows:   1000,
		},
		Distribution: DistributionSettings{
			Fields: []types.Field{types.FieldNet, types.FieldGross},
			Basis:  types.FieldPCS,
		},
		CBMField: types.FieldCBM,
		FOB: FOBSettings{
			ChunkSize:      2,
			ItemSeparator:  "\\",
			ChunkSeparator: "\n",
		},
		Footer: FooterSettings{
			Keywords:   []string{"total", "amount"},
			StartRow:   5,
			SearchCols: 6,
		},
	}
}

// DefaultProfile returns the built-in profile used when the configs
// directory holds no profiles. It matches every supported file.
func DefaultProfile() *ProfileConfig {
	p := &ProfileConfig{
		ProfileName:          "Default packing list",
		ProfileCode:          "default",
		FileMatchingPatterns: []string{"*.xlsx", "*.xlsm", "*.csv"},
	}
	// The built-in values always validate.
	if err := p.Prepare(); err != nil {
		panic(err)
	}
	return p
}

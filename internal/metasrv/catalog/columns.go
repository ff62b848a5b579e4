package catalog

import "github.com/streamhouse/streamhouse/pkg/types"

// ColumnDesc describes one column of a table, source, or sink. The id is
// stable for the lifetime of the owning table: renames and type changes keep
// it, and a dropped column's id is never handed out again.
type ColumnDesc struct {
	ID       types.ColumnID `json:"id"`
	Name     string         `json:"name"`
	DataType string         `json:"data_type"`
	IsHidden bool           `json:"is_hidden,omitempty"`
}

// OrderDirection is the sort direction of a primary-key entry.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// ColumnOrder is one entry of an ordered key: the column's position in the
// owning relation's column list plus a direction.
type ColumnOrder struct {
	ColumnIndex int            `json:"column_index"`
	Direction   OrderDirection `json:"direction"`
}

// TableVersion tracks a table's schema-change version and the next unassigned
// column id. Version increments by exactly one per accepted ALTER;
// NextColumnID is nondecreasing and never reclaimed.
type TableVersion struct {
	Version      uint64         `json:"version"`
	NextColumnID types.ColumnID `json:"next_column_id"`
}

// WatermarkDesc declares a watermark on a source: the column it tracks and
// the expression deriving the watermark value.
type WatermarkDesc struct {
	ColumnIndex int    `json:"column_index"`
	Expr        string `json:"expr"`
}

// RowFormat describes how a source decodes external rows.
type RowFormat struct {
	Kind              string `json:"kind"`
	SchemaLocation    string `json:"schema_location,omitempty"`
	UseSchemaRegistry bool   `json:"use_schema_registry,omitempty"`
	MessageName       string `json:"message_name,omitempty"`
	CSVDelimiter      string `json:"csv_delimiter,omitempty"`
	CSVHasHeader      bool   `json:"csv_has_header,omitempty"`
}

package catalogmanager

import (
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// Request specs are fully-specified object descriptions handed to the
// manager's create operations. Name resolution (database, schema, referenced
// columns) happens against the current snapshot inside the serialized
// mutation path; referenced relation ids come pre-resolved from the planner.

// ColumnSpec describes one user-declared column.
type ColumnSpec struct {
	Name     string `json:"name" validate:"required,objectName"`
	DataType string `json:"data_type" validate:"required"`
}

// DatabaseSpec describes a database to create.
type DatabaseSpec struct {
	Name string `json:"name" validate:"required,objectName"`
}

// SchemaSpec describes a schema to create.
type SchemaSpec struct {
	Database string `json:"database" validate:"required,objectName"`
	Name     string `json:"name" validate:"required,objectName"`
}

// TableSpec describes a table to create. A non-empty Properties set marks a
// connector-backed table: the manager implicitly creates a source coupled to
// the table, using Format for its row decoding. A non-empty
// DependentRelations set marks a materialized view modeled as a table.
type TableSpec struct {
	Database           string             `json:"database" validate:"required,objectName"`
	Schema             string             `json:"schema" validate:"required,objectName"`
	Name               string             `json:"name" validate:"required,objectName"`
	Columns            []ColumnSpec       `json:"columns" validate:"required,min=1,dive"`
	PrimaryKey         []string           `json:"primary_key,omitempty"`
	DistributionKey    []string           `json:"distribution_key,omitempty"`
	AppendOnly         bool               `json:"append_only,omitempty"`
	Watermarks         []string           `json:"watermarks,omitempty"`
	Definition         string             `json:"definition" validate:"required"`
	Properties         map[string]string  `json:"properties,omitempty"`
	Format             *catalog.RowFormat `json:"format,omitempty"`
	DependentRelations []types.ObjectID   `json:"dependent_relations,omitempty"`
}

// WatermarkSpec declares a watermark on a source column.
type WatermarkSpec struct {
	Column string `json:"column" validate:"required,objectName"`
	Expr   string `json:"expr" validate:"required"`
}

// SourceSpec describes a standalone source to create.
type SourceSpec struct {
	Database   string            `json:"database" validate:"required,objectName"`
	Schema     string            `json:"schema" validate:"required,objectName"`
	Name       string            `json:"name" validate:"required,objectName"`
	Format     catalog.RowFormat `json:"format" validate:"required"`
	Columns    []ColumnSpec      `json:"columns" validate:"required,min=1,dive"`
	PrimaryKey []string          `json:"primary_key,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Watermarks []WatermarkSpec   `json:"watermarks,omitempty" validate:"omitempty,dive"`
}

// SinkSpec describes a sink to create. DependentRelations are the relations
// the sink's query reads from and must be live.
type SinkSpec struct {
	Database           string            `json:"database" validate:"required,objectName"`
	Schema             string            `json:"schema" validate:"required,objectName"`
	Name               string            `json:"name" validate:"required,objectName"`
	Columns            []ColumnSpec      `json:"columns" validate:"required,min=1,dive"`
	PrimaryKey         []string          `json:"primary_key,omitempty"`
	DistributionKey    []string          `json:"distribution_key,omitempty"`
	AppendOnly         bool              `json:"append_only,omitempty"`
	Properties         map[string]string `json:"properties,omitempty"`
	Definition         string            `json:"definition" validate:"required"`
	DependentRelations []types.ObjectID  `json:"dependent_relations" validate:"required,min=1"`
}

// IndexSpec describes an index over a primary table. Columns name plain
// column references into the primary table, the only index item form
// currently supported.
type IndexSpec struct {
	Database string   `json:"database" validate:"required,objectName"`
	Schema   string   `json:"schema" validate:"required,objectName"`
	Name     string   `json:"name" validate:"required,objectName"`
	Table    string   `json:"table" validate:"required,objectName"`
	Columns  []string `json:"columns" validate:"required,min=1"`
}

// ViewSpec describes a (non-materialized) view. OutputColumns is the query's
// output schema as derived by the planner; ColumnNames are the user-declared
// aliases and, when present, must match the output arity.
type ViewSpec struct {
	Database           string           `json:"database" validate:"required,objectName"`
	Schema             string           `json:"schema" validate:"required,objectName"`
	Name               string           `json:"name" validate:"required,objectName"`
	SQL                string           `json:"sql" validate:"required"`
	ColumnNames        []string         `json:"column_names,omitempty"`
	OutputColumns      []ColumnSpec     `json:"output_columns" validate:"required,min=1,dive"`
	DependentRelations []types.ObjectID `json:"dependent_relations,omitempty"`
}

// FunctionSpec describes a user-defined function.
type FunctionSpec struct {
	Database   string   `json:"database" validate:"required,objectName"`
	Schema     string   `json:"schema" validate:"required,objectName"`
	Name       string   `json:"name" validate:"required,objectName"`
	ArgTypes   []string `json:"arg_types,omitempty"`
	ReturnType string   `json:"return_type" validate:"required"`
	Language   string   `json:"language" validate:"required"`
	Link       string   `json:"link" validate:"required"`
}

// RenameColumn renames one column, keeping its id.
type RenameColumn struct {
	From string `json:"from" validate:"required,objectName"`
	To   string `json:"to" validate:"required,objectName"`
}

// ChangeColumnType changes one column's data type, keeping its id.
type ChangeColumnType struct {
	Name     string `json:"name" validate:"required,objectName"`
	DataType string `json:"data_type" validate:"required"`
}

// AlterTableRequest carries one accepted ALTER. ExpectedVersion is the table
// version the caller believes is current; a mismatch is rejected as a
// version conflict and the caller must refetch and retry.
type AlterTableRequest struct {
	ExpectedVersion uint64             `json:"expected_version"`
	AddColumns      []ColumnSpec       `json:"add_columns,omitempty" validate:"omitempty,dive"`
	DropColumns     []string           `json:"drop_columns,omitempty"`
	RenameColumns   []RenameColumn     `json:"rename_columns,omitempty" validate:"omitempty,dive"`
	ChangeTypes     []ChangeColumnType `json:"change_types,omitempty" validate:"omitempty,dive"`
}

// Package catalog defines the catalog object model: the eight object kinds,
// their descriptors, and the Object interface the manager, store, and
// notifier operate on. These types are the persisted representation; the
// store serializes them as JSON values under per-kind keys.
package catalog

import (
	"github.com/google/uuid"

	"github.com/streamhouse/streamhouse/pkg/types"
)

// Database is a top-level namespace owning schemas.
type Database struct {
	ID    types.ObjectID `json:"id"`
	Name  string         `json:"name"`
	Owner uuid.UUID      `json:"owner"`
}

// Schema is a namespace within a database owning relations and functions.
type Schema struct {
	ID         types.ObjectID `json:"id"`
	DatabaseID types.ObjectID `json:"database_id"`
	Name       string         `json:"name"`
	Owner      uuid.UUID      `json:"owner"`
}

// Table is a stored relation. A materialized view is modeled as a Table with
// a nonempty DependentRelations set. A table created with connector
// properties carries AssociatedSourceID linking it to the hidden source that
// feeds it; the pair is created and dropped as one atomic unit.
type Table struct {
	ID                 types.ObjectID   `json:"id"`
	SchemaID           types.ObjectID   `json:"schema_id"`
	DatabaseID         types.ObjectID   `json:"database_id"`
	Name               string           `json:"name"`
	Owner              uuid.UUID        `json:"owner"`
	Columns            []ColumnDesc     `json:"columns"`
	PrimaryKey         []ColumnOrder    `json:"primary_key,omitempty"`
	DistributionKey    []int            `json:"distribution_key,omitempty"`
	StreamKey          []int            `json:"stream_key,omitempty"`
	AppendOnly         bool             `json:"append_only,omitempty"`
	VnodeColIndex      *int             `json:"vnode_col_index,omitempty"`
	RowIDIndex         *int             `json:"row_id_index,omitempty"`
	ValueIndices       []int            `json:"value_indices,omitempty"`
	WatermarkIndices   []int            `json:"watermark_indices,omitempty"`
	Definition         string           `json:"definition"`
	Version            *TableVersion    `json:"version,omitempty"`
	AssociatedSourceID *types.ObjectID  `json:"associated_source_id,omitempty"`
	DependentRelations []types.ObjectID `json:"dependent_relations,omitempty"`
}

// Source is an external ingestion endpoint.
type Source struct {
	ID          types.ObjectID    `json:"id"`
	SchemaID    types.ObjectID    `json:"schema_id"`
	DatabaseID  types.ObjectID    `json:"database_id"`
	Name        string            `json:"name"`
	Owner       uuid.UUID         `json:"owner"`
	RowFormat   RowFormat         `json:"row_format"`
	RowIDIndex  *int              `json:"row_id_index,omitempty"`
	Columns     []ColumnDesc      `json:"columns"`
	PKColumnIDs []types.ColumnID  `json:"pk_column_ids,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	Watermarks  []WatermarkDesc   `json:"watermarks,omitempty"`
}

// Sink is an external output endpoint reading from other relations.
type Sink struct {
	ID                 types.ObjectID    `json:"id"`
	SchemaID           types.ObjectID    `json:"schema_id"`
	DatabaseID         types.ObjectID    `json:"database_id"`
	Name               string            `json:"name"`
	Owner              uuid.UUID         `json:"owner"`
	Columns            []ColumnDesc      `json:"columns"`
	PrimaryKey         []ColumnOrder     `json:"primary_key,omitempty"`
	DistributionKey    []int             `json:"distribution_key,omitempty"`
	StreamKey          []int             `json:"stream_key,omitempty"`
	AppendOnly         bool              `json:"append_only,omitempty"`
	Properties         map[string]string `json:"properties,omitempty"`
	Definition         string            `json:"definition"`
	DependentRelations []types.ObjectID  `json:"dependent_relations,omitempty"`
}

// IndexItem is one indexed expression. Index items are currently restricted
// to plain column references into the primary table.
type IndexItem struct {
	ColumnIndex int `json:"column_index"`
}

// Index is defined over a primary table and physically backed by a covering
// table of its own.
type Index struct {
	ID              types.ObjectID `json:"id"`
	SchemaID        types.ObjectID `json:"schema_id"`
	DatabaseID      types.ObjectID `json:"database_id"`
	Name            string         `json:"name"`
	Owner           uuid.UUID      `json:"owner"`
	PrimaryTableID  types.ObjectID `json:"primary_table_id"`
	IndexTableID    types.ObjectID `json:"index_table_id"`
	IndexItems      []IndexItem    `json:"index_items"`
	OriginalColumns []int          `json:"original_columns"`
}

// View is a named SQL query.
type View struct {
	ID                 types.ObjectID   `json:"id"`
	SchemaID           types.ObjectID   `json:"schema_id"`
	DatabaseID         types.ObjectID   `json:"database_id"`
	Name               string           `json:"name"`
	Owner              uuid.UUID        `json:"owner"`
	SQL                string           `json:"sql"`
	ColumnNames        []string         `json:"column_names,omitempty"`
	DependentRelations []types.ObjectID `json:"dependent_relations,omitempty"`
}

// Function is a user-defined function.
type Function struct {
	ID         types.ObjectID `json:"id"`
	SchemaID   types.ObjectID `json:"schema_id"`
	DatabaseID types.ObjectID `json:"database_id"`
	Name       string         `json:"name"`
	Owner      uuid.UUID      `json:"owner"`
	ArgTypes   []string       `json:"arg_types,omitempty"`
	ReturnType string         `json:"return_type"`
	Language   string         `json:"language"`
	Link       string         `json:"link"`
}

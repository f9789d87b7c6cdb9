// Copyright (c) 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

// Package sqlbase holds the catalog types the online schema change engine
// reasons about: table/column/index descriptors, the schema (AIS) that
// groups them, and the change-set data model. It is a deliberately small
// slice of the teacher's sqlbase package (col_type_info.go,
// default_exprs.go), carrying only what the engine in this module needs.
package sqlbase

import "gitee.com/kwbasedb/onlineschema/pkg/types"

// ID identifies a table, database, or index within a Schema.
type ID uint32

// ColumnID identifies a column within its table.
type ColumnID uint32

// IndexID identifies an index within its table.
type IndexID uint32

// ColumnDescriptor describes one column of a table.
type ColumnDescriptor struct {
	ID   ColumnID
	Name string
	Type types.T

	// DefaultLiteral, if non-nil, is a literal default value in the
	// column's own string syntax (§4.3).
	DefaultLiteral *string
	// DefaultFunc, if non-empty, names a zero-argument scalar function
	// to resolve for the column's default (§4.3), e.g. "current_timestamp".
	DefaultFunc string
	// IsIdentity marks a column whose default is an identity-generator
	// sequence-next-value expression (§4.3).
	IsIdentity bool
	// Hidden marks the auto-generated hidden primary key column the
	// classifier's projection compiler treats specially (§4.2 step 1).
	Hidden bool
}

// IndexCategory classifies an index the way §3's IndexChange does.
type IndexCategory int

// Index categories, per §3.
const (
	IndexTable IndexCategory = iota
	IndexGroup
	IndexFullText
)

// IndexDescriptor describes one index of a table.
type IndexDescriptor struct {
	ID       IndexID
	Name     string
	Category IndexCategory
	// ColumnIDs is the ordered list of columns the index covers.
	ColumnIDs []ColumnID
	// GroupTableIDs lists every table a GROUP index spans, leaf-most
	// last; used to resolve "leaf-most participating table" (§4.2).
	GroupTableIDs []ID
}

// IndexKey is the identity of an index across the schema, since the same
// logical group index is described once per participating table's
// IndexDescriptor but must be deduplicated by the classifier (§4.1).
type IndexKey struct {
	TableID ID
	Name    string
}

// TableDescriptor describes one table.
type TableDescriptor struct {
	ID       ID
	Name     string
	ParentID ID // the table's parent in its group; ParentID == ID for a group root.
	Columns  []ColumnDescriptor
	Indexes  []IndexDescriptor

	// HiddenPKCount is the number of auto-generated hidden primary-key
	// columns prepended/appended to Columns (§3 RowType.hasTable /
	// §4.2's "new column count (including hidden PK)").
	HiddenPKCount int
}

// FindColumnByName returns the column named name, or ok=false.
func (t *TableDescriptor) FindColumnByName(name string) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnPosition returns the ordinal position of the column named name.
func (t *TableDescriptor) ColumnPosition(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Index returns the index named name, or ok=false.
func (t *TableDescriptor) Index(name string) (IndexDescriptor, bool) {
	for _, ix := range t.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return IndexDescriptor{}, false
}

// RowType describes the shape of rows a table or a projection produces
// (§3 RowType / ProjectedRowType).
type RowType struct {
	// TableID is the table this row type belongs to; Table is nil for a
	// row type with no concrete backing table (hasTable == false).
	TableID ID
	Table   *TableDescriptor
	Fields  []types.T
}

// HasTable reports whether a concrete table backs this row type (§3).
func (rt RowType) HasTable() bool { return rt.Table != nil }

// NumFields is the row type's field count.
func (rt RowType) NumFields() int { return len(rt.Fields) }

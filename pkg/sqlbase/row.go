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

package sqlbase

// Row is the abstract capability set the scanner and the DML hook
// operate on: a row type, an hKey, and positional field access (§9
// "Polymorphism over row sources"). The teacher's tablewriter/row
// packages use a similar narrow interface (row.Deleter etc. in
// sql/tablewriter_delete.go) rather than an inheritance chain; this
// module follows the same shape with a single small interface plus a
// couple of concrete variants instead of a tagged union, since Go has no
// sum types.
type Row interface {
	RowType() RowType
	HKey() HKey
	Field(i int) interface{}
}

// WireRow wraps a row materialized from on-disk bytes (or, in this
// module's in-memory store, from a plain field slice) — the base case of
// the Row variants.
type WireRow struct {
	rowType RowType
	hKey    HKey
	fields  []interface{}
}

// NewWireRow constructs a WireRow over already-decoded fields.
func NewWireRow(rowType RowType, hKey HKey, fields []interface{}) *WireRow {
	return &WireRow{rowType: rowType, hKey: hKey, fields: fields}
}

// RowType implements Row.
func (r *WireRow) RowType() RowType { return r.rowType }

// HKey implements Row.
func (r *WireRow) HKey() HKey { return r.hKey }

// Field implements Row.
func (r *WireRow) Field(i int) interface{} { return r.fields[i] }

// OverlayRow re-types a backing row without recomputing its fields: used
// when a TABLE/GROUP change has no column changes and no hidden-PK count
// difference (§4.2), so the old row's values are reused verbatim under
// the new row type. It preserves the backing row's hKey identity, per
// §4.4's "overlay rows must preserve the identity of the pre-image row's
// hKey".
type OverlayRow struct {
	backing Row
	newType RowType
}

// NewOverlayRow constructs an OverlayRow.
func NewOverlayRow(backing Row, newType RowType) *OverlayRow {
	return &OverlayRow{backing: backing, newType: newType}
}

// RowType implements Row, returning the new row type.
func (r *OverlayRow) RowType() RowType { return r.newType }

// HKey implements Row, returning the backing row's hKey unchanged.
func (r *OverlayRow) HKey() HKey { return r.backing.HKey() }

// Field implements Row, delegating to the backing row.
func (r *OverlayRow) Field(i int) interface{} { return r.backing.Field(i) }

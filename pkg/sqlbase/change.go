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

// ChangeKind is the kind of a single column or index alteration.
type ChangeKind int

// Change kinds, per §3.
const (
	ChangeAdd ChangeKind = iota
	ChangeDrop
	ChangeModify
)

// Change is a single per-column alteration (§3).
type Change struct {
	Kind    ChangeKind
	OldName string // set for DROP and MODIFY
	NewName string // set for ADD and MODIFY
}

// IndexChange is a single per-index alteration (§3).
type IndexChange struct {
	Kind     ChangeKind
	Category IndexCategory
	OldName  string
	NewName  string
}

// ChangeLevel is the coarse classification that determines migration
// strategy, in increasing order of cost (§3).
type ChangeLevel int

// Change levels, in the total order METADATA_NOT_NULL < INDEX < TABLE < GROUP.
const (
	MetadataNotNull ChangeLevel = iota
	LevelIndex
	LevelTable
	LevelGroup
)

// String renders a ChangeLevel for diagnostics and error messages.
func (l ChangeLevel) String() string {
	switch l {
	case MetadataNotNull:
		return "METADATA_NOT_NULL"
	case LevelIndex:
		return "INDEX"
	case LevelTable:
		return "TABLE"
	case LevelGroup:
		return "GROUP"
	default:
		return "UNKNOWN"
	}
}

// ChangeSet is bound to one table id and carries its change level plus the
// ordered column and index alterations (§3). All ChangeSets presented
// together to the classifier must share the same change level.
type ChangeSet struct {
	TableID      ID
	ChangeLevel  ChangeLevel
	Columns      []Change
	Indexes      []IndexChange
}

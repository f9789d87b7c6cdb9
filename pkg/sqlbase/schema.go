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

// Schema stands in for the AIS: the server's in-memory catalog of tables,
// grouped by parent/child relationships, for one schema version. Schema
// values are immutable once constructed (§5 "Shared resource policy"),
// matching the teacher's treatment of an AIS snapshot as append-only
// across versions.
type Schema struct {
	Version uint64
	tables  map[ID]*TableDescriptor
}

// NewSchema constructs a Schema from a set of table descriptors.
func NewSchema(version uint64, tables ...*TableDescriptor) *Schema {
	s := &Schema{Version: version, tables: make(map[ID]*TableDescriptor, len(tables))}
	for _, t := range tables {
		s.tables[t.ID] = t
	}
	return s
}

// Table returns the table descriptor with the given id.
func (s *Schema) Table(id ID) (*TableDescriptor, bool) {
	t, ok := s.tables[id]
	return t, ok
}

// MustTable is Table, panicking if absent; used where the caller has
// already established the id must exist (e.g. a change-set's own TableID).
func (s *Schema) MustTable(id ID) *TableDescriptor {
	t, ok := s.tables[id]
	if !ok {
		panic("sqlbase: unknown table id")
	}
	return t
}

// Root returns the group root of the table with the given id: the
// ancestor whose ParentID equals its own ID.
func (s *Schema) Root(id ID) ID {
	seen := map[ID]bool{}
	for {
		t, ok := s.tables[id]
		if !ok || t.ParentID == id || seen[id] {
			return id
		}
		seen[id] = true
		id = t.ParentID
	}
}

// GroupMembers returns every table in the group rooted at root, in no
// particular order.
func (s *Schema) GroupMembers(root ID) []*TableDescriptor {
	var members []*TableDescriptor
	for _, t := range s.tables {
		if s.Root(t.ID) == root {
			members = append(members, t)
		}
	}
	return members
}

// IsLeafMost reports whether tableID is the leaf-most (deepest) table
// among the participants of a group index, breaking ties on a stable id
// order. Used by the buildIndexes operation (pkg/online's
// Engine.BuildIndexes) to build a group index's entries exactly once.
func (s *Schema) IsLeafMost(tableID ID, participants []ID) bool {
	depth := func(id ID) int {
		d := 0
		seen := map[ID]bool{}
		for {
			t, ok := s.tables[id]
			if !ok || t.ParentID == id || seen[id] {
				return d
			}
			seen[id] = true
			id = t.ParentID
			d++
		}
	}
	myDepth := depth(tableID)
	for _, p := range participants {
		if p == tableID {
			continue
		}
		if d := depth(p); d > myDepth || (d == myDepth && p < tableID) {
			return false
		}
	}
	return true
}

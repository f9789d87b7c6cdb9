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

package online

import (
	"fmt"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Classify reduces a collection of per-table change descriptors to a
// single change level (§4.1). It fails closed: MixedChangeLevels if any
// two change-sets disagree, EmptyChangeSets if given none, and
// DuplicateTableID if the same table id appears twice (§9 Open Question,
// resolved here as a fatal precondition failure).
func Classify(changeSets []sqlbase.ChangeSet) (sqlbase.ChangeLevel, error) {
	if len(changeSets) == 0 {
		return 0, sqlbase.ErrEmptyChangeSets
	}
	seen := make(map[sqlbase.ID]bool, len(changeSets))
	level := changeSets[0].ChangeLevel
	for _, cs := range changeSets {
		if seen[cs.TableID] {
			return 0, fmt.Errorf("%w: table %d", sqlbase.ErrDuplicateTableID, cs.TableID)
		}
		seen[cs.TableID] = true
		if cs.ChangeLevel != level {
			return 0, sqlbase.ErrMixedChangeLevels
		}
	}
	return level, nil
}

// IndexBuildTarget pairs an index to build with the table id whose
// change-set named it. For an IndexGroup index TableID is just one of
// possibly several participating tables (the first change-set to name
// it); the full participant list lives on Index.GroupTableIDs.
type IndexBuildTarget struct {
	TableID ID
	Index   sqlbase.IndexDescriptor
}

// FindIndexesToBuild visits each ADD/MODIFY IndexChange across
// changeSets and resolves it against schema by category, returning the
// set of indexes to build with set semantics on index identity — a group
// index referenced by several tables' change-sets is returned exactly
// once (§4.1 "Tie-breaks").
func FindIndexesToBuild(changeSets []sqlbase.ChangeSet, schema *sqlbase.Schema) ([]IndexBuildTarget, error) {
	type key struct {
		tableID ID
		name    string
	}
	seen := map[key]bool{}
	var out []IndexBuildTarget
	for _, cs := range changeSets {
		table, ok := schema.Table(cs.TableID)
		if !ok {
			return nil, fmt.Errorf("online: unknown table %d in change set", cs.TableID)
		}
		for _, ic := range cs.Indexes {
			if ic.Kind != sqlbase.ChangeAdd && ic.Kind != sqlbase.ChangeModify {
				continue
			}
			ix, ok := table.Index(ic.NewName)
			if !ok {
				return nil, fmt.Errorf("online: index %q not found in new schema for table %d", ic.NewName, cs.TableID)
			}
			// A group index is identified by name across every
			// participating table's descriptor; key on the name alone
			// for that category so the same logical index dedupes.
			var k key
			if ix.Category == sqlbase.IndexGroup {
				k = key{name: ix.Name}
			} else {
				k = key{tableID: cs.TableID, name: ix.Name}
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, IndexBuildTarget{TableID: cs.TableID, Index: ix})
		}
	}
	return out, nil
}

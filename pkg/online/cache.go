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
	"sync"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// TransformCache memoizes a built Transform per table for the lifetime of
// one schema version (§2 component 5 "Transform Cache"). A schema version
// bump — the only event that can change a table's column set mid-session
// — invalidates the whole cache rather than tracking per-table staleness,
// since every online session targets a single schema change and sees at
// most one version bump (the change itself going live).
type TransformCache struct {
	mu       sync.Mutex
	registry *types.Registry
	version  uint64
	entries  map[sqlbase.ID]*Transform
}

// NewTransformCache returns an empty cache bound to registry for cast and
// default-function resolution.
func NewTransformCache(registry *types.Registry) *TransformCache {
	return &TransformCache{registry: registry, entries: map[sqlbase.ID]*Transform{}}
}

// Get returns the Transform for cs.TableID given its pre-image
// descriptor oldTable, building and memoizing it on first use per schema
// version. oldTable is nil when the change adds no columns and needs no
// prior descriptor to resolve old positions against (e.g. an INDEX-level
// change, or a TABLE-level change with an empty change-set).
func (c *TransformCache) Get(
	schema *sqlbase.Schema, oldTable *sqlbase.TableDescriptor, cs sqlbase.ChangeSet,
) (*Transform, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if schema.Version != c.version {
		c.entries = map[sqlbase.ID]*Transform{}
		c.version = schema.Version
	}
	if t, ok := c.entries[cs.TableID]; ok {
		return t, nil
	}

	t, err := c.build(schema, oldTable, cs)
	if err != nil {
		return nil, err
	}
	c.entries[cs.TableID] = t
	return t, nil
}

// build compiles the Transform for one table's change-set (§4.2). A
// change needs no projection — and so produces an overlay-only Transform
// — exactly when it touches no columns and leaves the hidden PK count
// unchanged; any other TABLE/GROUP change compiles a full projection.
func (c *TransformCache) build(
	schema *sqlbase.Schema, oldTable *sqlbase.TableDescriptor, cs sqlbase.ChangeSet,
) (*Transform, error) {
	newTable, ok := schema.Table(cs.TableID)
	if !ok {
		return nil, fmt.Errorf("online: unknown table %d building transform", cs.TableID)
	}

	t := &Transform{checker: NewRowChecker(newTable)}

	needsProjection := len(cs.Columns) > 0
	if oldTable != nil && oldTable.HiddenPKCount != newTable.HiddenPKCount {
		needsProjection = true
	}

	if !needsProjection {
		fields := make([]types.T, len(newTable.Columns))
		for i, col := range newTable.Columns {
			fields[i] = col.Type
		}
		t.newType = sqlbase.RowType{TableID: newTable.ID, Table: newTable, Fields: fields}
		return t, nil
	}

	if oldTable == nil {
		return nil, fmt.Errorf("online: table %d has column changes but no prior descriptor supplied", cs.TableID)
	}
	projected, err := CompileProjection(cs, oldTable, newTable, c.registry)
	if err != nil {
		return nil, err
	}
	t.Projected = projected
	t.newType = projected.RowType
	return t, nil
}

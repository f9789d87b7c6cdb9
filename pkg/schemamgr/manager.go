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

// Package schemamgr holds one OnlineState per in-flight online schema
// change session: the change-sets and schema snapshot it was opened
// against, whether it is still active, and the per-table hKey trackers
// the DML hook and the scan driver share (§4.6, §4.7). It is the
// session-scoped home for state pkg/online's operations are handed, the
// way the teacher's planner stores schema-change state on its
// per-session execCfg rather than threading it through every call.
package schemamgr

import (
	"sync"

	"gitee.com/kwbasedb/onlineschema/pkg/online"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// SessionID identifies one online schema change session, scoped to the
// process — typically the connection or job id that issued the ALTER.
type SessionID string

// OnlineState is the per-session record a Manager hands back to callers.
type OnlineState struct {
	mu         sync.Mutex
	schema     *sqlbase.Schema
	changeSets []sqlbase.ChangeSet
	level      sqlbase.ChangeLevel
	active     bool
	trackers   map[sqlbase.ID]sqlbase.Tracker
}

// GetOnlineChangeSets returns the change-sets this session was opened
// with.
func (s *OnlineState) GetOnlineChangeSets() []sqlbase.ChangeSet {
	return s.changeSets
}

// GetOnlineChangeLevel returns the session's classified change level.
func (s *OnlineState) GetOnlineChangeLevel() sqlbase.ChangeLevel {
	return s.level
}

// GetAIS returns the schema snapshot the session targets.
func (s *OnlineState) GetAIS() *sqlbase.Schema {
	return s.schema
}

// IsOnlineActive reports whether the session is still in flight: a
// concurrent DML hook consults this to decide whether it needs to do any
// online-specific maintenance at all (§4.6 step 1).
func (s *OnlineState) IsOnlineActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// deactivate marks the session finished; called by the Manager once the
// scan driver completes or the session is abandoned.
func (s *OnlineState) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// AddOnlineHandledHKey records that tableID's row at hKey has been
// migrated by the writer path (§4.6 step 4's final action, §4.7).
func (s *OnlineState) AddOnlineHandledHKey(tableID sqlbase.ID, hKey sqlbase.HKey) {
	s.mu.Lock()
	t := s.trackerLocked(tableID)
	s.mu.Unlock()
	t.Save(tableID, hKey)
}

// GetOnlineHandledHKeyIterator returns an iterator over tableID's tracked
// hKeys at or after start, for the scan driver's per-row checker (§4.5).
func (s *OnlineState) GetOnlineHandledHKeyIterator(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator {
	s.mu.Lock()
	t := s.trackerLocked(tableID)
	s.mu.Unlock()
	return t.Iterator(tableID, start)
}

func (s *OnlineState) trackerLocked(tableID sqlbase.ID) sqlbase.Tracker {
	t, ok := s.trackers[tableID]
	if !ok {
		t = online.NewTracker()
		s.trackers[tableID] = t
	}
	return t
}

// Manager is the schema-change manager's online-session registry (§4.9's
// "schema change manager" collaborator, narrowed to what this module
// needs of it): it opens one OnlineState per session and tears it down
// when the session concludes.
type Manager struct {
	mu       sync.Mutex
	sessions map[SessionID]*OnlineState
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: map[SessionID]*OnlineState{}}
}

// Begin opens a new online session, classified to level, targeting
// schema with changeSets. It replaces any existing session registered
// under id.
func (m *Manager) Begin(
	id SessionID, schema *sqlbase.Schema, changeSets []sqlbase.ChangeSet, level sqlbase.ChangeLevel,
) *OnlineState {
	st := &OnlineState{
		schema:     schema,
		changeSets: changeSets,
		level:      level,
		active:     true,
		trackers:   map[sqlbase.ID]sqlbase.Tracker{},
	}
	m.mu.Lock()
	m.sessions[id] = st
	m.mu.Unlock()
	return st
}

// Get returns the session registered under id, if any.
func (m *Manager) Get(id SessionID) (*OnlineState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	return st, ok
}

// End marks id's session finished and removes it from the registry. It is
// idempotent: ending an unknown or already-ended session is a no-op.
func (m *Manager) End(id SessionID) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		st.deactivate()
	}
}

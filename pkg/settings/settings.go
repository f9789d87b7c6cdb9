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

// Package settings is a narrow stand-in for the server-wide cluster
// settings registry: named, typed, mutable-at-runtime values shared by a
// process. It keeps the registration-by-key shape of
// kwbase/pkg/settings/byte_size.go without the full validation/visibility
// machinery, since the online engine only needs a couple of knobs.
package settings

import "sync"

// BoolSetting is a named boolean setting with a default value.
type BoolSetting struct {
	key string
	def bool
}

// IntSetting is a named integer setting with a default value.
type IntSetting struct {
	key string
	def int64
}

var registry = struct {
	sync.Mutex
	bools map[string]*BoolSetting
	ints  map[string]*IntSetting
}{
	bools: map[string]*BoolSetting{},
	ints:  map[string]*IntSetting{},
}

// RegisterBoolSetting defines a new named boolean setting.
func RegisterBoolSetting(key string, def bool) *BoolSetting {
	registry.Lock()
	defer registry.Unlock()
	s := &BoolSetting{key: key, def: def}
	registry.bools[key] = s
	return s
}

// RegisterIntSetting defines a new named integer setting.
func RegisterIntSetting(key string, def int64) *IntSetting {
	registry.Lock()
	defer registry.Unlock()
	s := &IntSetting{key: key, def: def}
	registry.ints[key] = s
	return s
}

// Values holds per-process overrides of registered settings. The zero
// value reads all settings at their registered defaults.
type Values struct {
	mu       sync.Mutex
	boolOvr  map[string]bool
	intOvr   map[string]int64
}

// Get returns the current value of b in sv.
func (b *BoolSetting) Get(sv *Values) bool {
	if sv == nil {
		return b.def
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if v, ok := sv.boolOvr[b.key]; ok {
		return v
	}
	return b.def
}

// Override sets b's value in sv, for tests and for admin-issued SET commands.
func (b *BoolSetting) Override(sv *Values, v bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.boolOvr == nil {
		sv.boolOvr = map[string]bool{}
	}
	sv.boolOvr[b.key] = v
}

// Get returns the current value of i in sv.
func (i *IntSetting) Get(sv *Values) int64 {
	if sv == nil {
		return i.def
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if v, ok := sv.intOvr[i.key]; ok {
		return v
	}
	return i.def
}

// Override sets i's value in sv.
func (i *IntSetting) Override(sv *Values, v int64) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.intOvr == nil {
		sv.intOvr = map[string]int64{}
	}
	sv.intOvr[i.key] = v
}

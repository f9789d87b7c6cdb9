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

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Sentinel errors surfaced by the online schema change engine (§6 "Error
// codes surfaced", §7).
var (
	// ErrMixedChangeLevels is returned by the classifier when two
	// change-sets in the same call disagree on change level (§4.1).
	ErrMixedChangeLevels = errors.New("mixed change levels in online schema change")

	// ErrEmptyChangeSets is returned by the classifier when given no
	// change-sets to classify (§4.1).
	ErrEmptyChangeSets = errors.New("no change sets to classify")

	// ErrDuplicateTableID is returned when the same table id appears
	// twice among the change-sets passed to the classifier — treated as
	// a fatal precondition failure per the Open Question in §9.
	ErrDuplicateTableID = errors.New("duplicate table id in change sets")
)

// NoSuchRowError reports that a logical delete found no row to delete. Per
// §4.6 and §6 it is non-fatal during the TABLE/GROUP maintenance path: the
// scanner has not yet promoted the row into the new schema's space.
type NoSuchRowError struct {
	TableID ID
	HKey    HKey
}

func (e *NoSuchRowError) Error() string {
	return "no such row: table " + strconv.Itoa(int(e.TableID)) + " hKey " + HKey(e.HKey).String()
}

// NotAllowedByConfigError is fatal: the server is configured to forbid
// concurrent DML during an online schema change, and a write fired the
// hook anyway (§4.6, §7).
type NotAllowedByConfigError struct {
	TableID ID
}

func (e *NotAllowedByConfigError) Error() string {
	return "concurrent DML not allowed while table " + strconv.Itoa(int(e.TableID)) + " is under online schema change"
}
